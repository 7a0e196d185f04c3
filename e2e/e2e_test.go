//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	serverURL string
	opsURL    string
)

func TestMain(m *testing.M) {
	serverURL = getenv("SERVER_URL", "http://localhost:5001")
	opsURL = getenv("OPS_URL", "http://localhost:9090")

	// Wait for the server to report ready.
	for i := 0; i < 30; i++ {
		resp, err := http.Get(opsURL + "/readyz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		time.Sleep(2 * time.Second)
	}

	os.Exit(m.Run())
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestHealthCheck(t *testing.T) {
	resp, err := http.Get(opsURL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadiness_ReportsArtifactSet(t *testing.T) {
	resp, err := http.Get(opsURL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status        string `json:"status"`
		ArtifactSetID string `json:"artifact_set_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ready", body.Status)
	assert.NotEmpty(t, body.ArtifactSetID)
}

func TestPredict_RejectsInvalidBodies(t *testing.T) {
	for name, body := range map[string]string{
		"not json":       `{`,
		"not an object":  `[1, 2]`,
		"missing fields": `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp := postJSON(t, "/predict", []byte(body))
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var out map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.NotEmpty(t, out["error"])
			assert.NotContains(t, out, "churn_probability")
		})
	}
}

// TestPredict_Record scores the record in E2E_RECORD_FILE, which must match
// the deployed artifact set's feature columns.
func TestPredict_Record(t *testing.T) {
	path := os.Getenv("E2E_RECORD_FILE")
	if path == "" {
		t.Skip("E2E_RECORD_FILE not set")
	}
	record, err := os.ReadFile(path)
	require.NoError(t, err)

	resp := postJSON(t, "/predict", record)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		ChurnProbability *float64 `json:"churn_probability"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotNil(t, out.ChurnProbability)
	assert.GreaterOrEqual(t, *out.ChurnProbability, 0.0)
	assert.LessOrEqual(t, *out.ChurnProbability, 1.0)
}

func postJSON(t *testing.T, path string, body []byte) *http.Response {
	t.Helper()
	resp, err := http.Post(serverURL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

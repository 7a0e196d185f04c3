package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
)

// AssertErrorContains checks that err contains the expected substring.
func AssertErrorContains(t *testing.T, err error, expected string) {
	t.Helper()
	require.Error(t, err)
	assert.Contains(t, err.Error(), expected)
}

// RequireMissingColumn asserts err is a *model.MissingColumnError naming column.
func RequireMissingColumn(t *testing.T, err error, column string) {
	t.Helper()
	var missing *model.MissingColumnError
	require.True(t, errors.As(err, &missing), "expected MissingColumnError, got %v", err)
	assert.Equal(t, column, missing.Column)
}

// RequireUnseenCategory asserts err is a *model.UnseenCategoryError for column and value.
func RequireUnseenCategory(t *testing.T, err error, column, value string) {
	t.Helper()
	var unseen *model.UnseenCategoryError
	require.True(t, errors.As(err, &unseen), "expected UnseenCategoryError, got %v", err)
	assert.Equal(t, column, unseen.Column)
	assert.Equal(t, value, unseen.Value)
}

// RequireArtifactLoadError asserts err is a *model.ArtifactLoadError for artifact.
func RequireArtifactLoadError(t *testing.T, err error, artifact string) {
	t.Helper()
	var loadErr *model.ArtifactLoadError
	require.True(t, errors.As(err, &loadErr), "expected ArtifactLoadError, got %v", err)
	assert.Equal(t, artifact, loadErr.Artifact)
}

package grpc_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpcpresentation "github.com/sibi-seeni/credit-churn-deploy/internal/presentation/grpc"
	"github.com/sibi-seeni/credit-churn-deploy/pkg/tlsutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T, opts grpcpresentation.Options) string {
	t.Helper()
	opts.Address = "127.0.0.1:0"
	srv, err := grpcpresentation.NewServer(opts, quietLogger())
	require.NoError(t, err)

	addr, err := srv.Listen()
	require.NoError(t, err)
	go func() { _ = srv.Start() }()
	t.Cleanup(srv.Stop)
	return addr.String()
}

func check(t *testing.T, addr string, creds credentials.TransportCredentials, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestServer_Health(t *testing.T) {
	addr := startServer(t, grpcpresentation.Options{ServiceName: "churn-serve"})

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, addr, insecure.NewCredentials(), ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, addr, insecure.NewCredentials(), "churn-serve"))
}

func TestServer_HealthOverTLS(t *testing.T) {
	files, err := tlsutil.GenerateDevCertificates([]string{"localhost", "127.0.0.1"}, t.TempDir())
	require.NoError(t, err)

	addr := startServer(t, grpcpresentation.Options{
		ServiceName: "churn-serve",
		CertFile:    files.Cert,
		KeyFile:     files.CertKey,
	})

	creds, err := grpcpresentation.ClientCredentials(files.CA, "localhost")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, addr, creds, "churn-serve"))
}

func TestNewServer_BadTLSFiles(t *testing.T) {
	_, err := grpcpresentation.NewServer(grpcpresentation.Options{
		Address:  "127.0.0.1:0",
		CertFile: "/nonexistent/server.pem",
		KeyFile:  "/nonexistent/server-key.pem",
	}, quietLogger())
	assert.Error(t, err)
}

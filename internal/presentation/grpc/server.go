package grpc

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/sibi-seeni/credit-churn-deploy/pkg/tlsutil"
)

// Options configures the gRPC health server.
type Options struct {
	Address     string
	ServiceName string
	// CertFile and KeyFile enable TLS when both are set.
	CertFile   string
	KeyFile    string
	Reflection bool
}

// Server exposes grpc.health.v1.Health for the prediction service.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	logger     *slog.Logger
	opts       Options
}

// NewServer creates the gRPC server. The service is registered as SERVING
// because it is only constructed once the artifact set has loaded.
func NewServer(opts Options, logger *slog.Logger) (*Server, error) {
	var serverOpts []grpc.ServerOption

	if opts.CertFile != "" && opts.KeyFile != "" {
		creds, err := tlsutil.ServerCredentials(opts.CertFile, opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("gRPC TLS: %w", err)
		}
		serverOpts = append(serverOpts, grpc.Creds(creds))
		logger.Info("gRPC TLS enabled", slog.String("cert", opts.CertFile))
	} else {
		logger.Info("gRPC TLS not configured, running without TLS")
	}

	grpcServer := grpc.NewServer(serverOpts...)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(opts.ServiceName, healthpb.HealthCheckResponse_SERVING)

	if opts.Reflection {
		reflection.Register(grpcServer)
	}

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		logger:     logger,
		opts:       opts,
	}, nil
}

// Listen binds the configured address. It is separate from Serve so callers
// can learn the bound address before serving.
func (s *Server) Listen() (net.Addr, error) {
	listener, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.opts.Address, err)
	}
	s.listener = listener
	return listener.Addr(), nil
}

// Start begins listening and serving gRPC requests.
func (s *Server) Start() error {
	if s.listener == nil {
		if _, err := s.Listen(); err != nil {
			return err
		}
	}

	s.logger.Info("gRPC server starting",
		slog.String("address", s.listener.Addr().String()),
	)

	if err := s.grpcServer.Serve(s.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop marks every service NOT_SERVING and gracefully stops the gRPC server.
func (s *Server) Stop() {
	s.logger.Info("gRPC server shutting down")
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

// ClientCredentials returns transport credentials that trust caFile, for
// health checks against a TLS-enabled server.
func ClientCredentials(caFile, serverName string) (credentials.TransportCredentials, error) {
	return tlsutil.ClientCredentials(caFile, serverName)
}

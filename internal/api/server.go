package api

import (
	"Go2NetBandwidth/internal/config"
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server runs the HTTP API and, when configured, a gRPC server exposing the
// standard health service.
type Server struct {
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	grpcAddr   string
}

// NewServer wires handler into an HTTP server. The health status starts as NOT_SERVING.
func NewServer(cfg config.APIConfig, handler http.Handler) *Server {
	s := &Server{
		httpServer: &http.Server{Addr: cfg.ListenAddr, Handler: handler},
		health:     health.NewServer(),
		grpcAddr:   cfg.GRPCAddr,
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	if s.grpcAddr != "" {
		s.grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(s.grpcServer, s.health)
	}
	return s
}

// Start binds both listeners and serves in the background.
func (s *Server) Start() error {
	httpLis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	go func() {
		log.Printf("API server starting on %s", httpLis.Addr())
		if err := s.httpServer.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			log.Printf("API server error: %v", err)
		}
	}()

	if s.grpcServer == nil {
		return nil
	}
	grpcLis, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		httpLis.Close()
		return err
	}
	s.serveGRPC(grpcLis)
	return nil
}

func (s *Server) serveGRPC(lis net.Listener) {
	go func() {
		log.Printf("gRPC health server starting on %s", lis.Addr())
		if err := s.grpcServer.Serve(lis); err != nil {
			log.Printf("gRPC server error: %v", err)
		}
	}()
}

// SetServing flips the health status once capture is running.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}

// Shutdown stops both servers.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("API server forced to shutdown: %v", err)
	}
	log.Println("API servers exited.")
}

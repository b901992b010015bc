package status

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const shutdownTimeout = 10 * time.Second

// Server exposes health and metrics while a run is in progress. An empty
// port disables the corresponding listener.
type Server struct {
	HTTPPort string
	GRPCPort string

	checker *Checker
	metrics http.Handler
	log     *zap.Logger
}

// NewServer creates a status server
func NewServer(httpPort, grpcPort string, checker *Checker, metrics http.Handler, log *zap.Logger) *Server {
	return &Server{
		HTTPPort: httpPort,
		GRPCPort: grpcPort,
		checker:  checker,
		metrics:  metrics,
		log:      log,
	}
}

// Run serves until ctx is done, then shuts the listeners down
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if s.HTTPPort != "" {
		httpServer := &http.Server{
			Addr:         fmt.Sprintf(":%s", s.HTTPPort),
			Handler:      NewMux(s.checker, s.metrics),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		g.Go(func() error {
			s.log.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				s.log.Error("HTTP server shutdown error", zap.Error(err))
			}
			return nil
		})
	}

	if s.GRPCPort != "" {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%s", s.GRPCPort))
		if err != nil {
			return fmt.Errorf("listen on gRPC port: %w", err)
		}

		grpcServer := grpc.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, NewHealthServer(s.checker))

		g.Go(func() error {
			s.log.Info("Starting gRPC server", zap.String("address", listener.Addr().String()))
			if err := grpcServer.Serve(listener); err != nil {
				return fmt.Errorf("serve grpc: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			grpcServer.GracefulStop()
			return nil
		})
	}

	err := g.Wait()
	s.log.Info("Status server stopped")
	return err
}

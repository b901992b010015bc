package status

import (
	"context"

	"github.com/bookstore/services/comics/internal/events"
	"go.uber.org/zap"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger checks the database connection
type Pinger interface {
	Ping() error
}

// Checker reports whether the dependencies of a run are reachable
type Checker struct {
	db        Pinger
	publisher events.Notifier
	log       *zap.Logger
}

// NewChecker creates a new dependency checker
func NewChecker(database Pinger, publisher events.Notifier, log *zap.Logger) *Checker {
	return &Checker{
		db:        database,
		publisher: publisher,
		log:       log,
	}
}

// Check returns a description of the first failing dependency, or nil
func (c *Checker) Check() error {
	if err := c.db.Ping(); err != nil {
		c.log.Error("Database health check failed", zap.Error(err))
		return errDatabase
	}
	if !c.publisher.IsHealthy() {
		c.log.Error("RabbitMQ health check failed")
		return errBroker
	}
	return nil
}

// HealthServer implements the gRPC health checking protocol
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	checker *Checker
}

// NewHealthServer creates a new health check server
func NewHealthServer(checker *Checker) *HealthServer {
	return &HealthServer{checker: checker}
}

// Check implements the health check
func (h *HealthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	return h.response(), nil
}

// Watch sends the current status once and returns
func (h *HealthServer) Watch(req *grpc_health_v1.HealthCheckRequest, server grpc_health_v1.Health_WatchServer) error {
	return server.Send(h.response())
}

func (h *HealthServer) response() *grpc_health_v1.HealthCheckResponse {
	if err := h.checker.Check(); err != nil {
		return &grpc_health_v1.HealthCheckResponse{
			Status: grpc_health_v1.HealthCheckResponse_NOT_SERVING,
		}
	}
	return &grpc_health_v1.HealthCheckResponse{
		Status: grpc_health_v1.HealthCheckResponse_SERVING,
	}
}

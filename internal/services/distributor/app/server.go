// Package app wires the distributor runtime: the outbox consumer loop,
// the SMS gateway client, and gRPC health reporting.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	dialogsqlite "github.com/drillwire/drillwire/internal/services/dialog/storage/sqlite"
	"github.com/drillwire/drillwire/internal/services/distributor/sender"
)

// Config carries the distributor runtime wiring.
type Config struct {
	GRPCAddr    string
	DBPath      string
	GatewayURL  string
	GatewayKey  string
	GatewayRate float64
	Worker      WorkerConfig
}

// Run starts the distributor until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "dialog.db")
	}

	store, err := dialogsqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open dialog store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close dialog store: %v", err)
		}
	}()

	gateway, err := sender.NewHTTPGateway(cfg.GatewayURL, cfg.GatewayKey, cfg.GatewayRate)
	if err != nil {
		return fmt.Errorf("build sms gateway: %w", err)
	}

	worker := NewWorker(store, gateway, cfg.Worker)

	var (
		grpcServer   *grpc.Server
		healthServer *health.Server
		listener     net.Listener
	)
	serveErr := make(chan error, 2)
	if strings.TrimSpace(cfg.GRPCAddr) != "" {
		listener, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
		}
		grpcServer = grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
		healthServer = health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		go func() {
			err := grpcServer.Serve(listener)
			if errors.Is(err, grpc.ErrServerStopped) {
				err = nil
			}
			serveErr <- err
		}()
		defer func() {
			healthServer.Shutdown()
			grpcServer.Stop()
			_ = listener.Close()
		}()
		log.Printf("distributor health server listening at %v", listener.Addr())
	}

	go func() {
		serveErr <- worker.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		if grpcServer != nil {
			if healthServer != nil {
				healthServer.Shutdown()
			}
			stopped := make(chan struct{})
			go func() {
				grpcServer.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-time.After(5 * time.Second):
				grpcServer.Stop()
			}
		}
		return nil
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve distributor: %w", err)
		}
		return nil
	}
}

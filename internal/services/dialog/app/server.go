// Package app wires the dialog runtime: command ingest over HTTP,
// SQLite storage, and gRPC health reporting.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/drillwire/drillwire/internal/drills"
	"github.com/drillwire/drillwire/internal/platform/timeouts"
	"github.com/drillwire/drillwire/internal/services/dialog/engine"
	"github.com/drillwire/drillwire/internal/services/dialog/registration"
	dialogsqlite "github.com/drillwire/drillwire/internal/services/dialog/storage/sqlite"
)

// Config carries the dialog server wiring.
type Config struct {
	HTTPAddr        string
	GRPCAddr        string
	DBPath          string
	RegistrationURL string
	RegistrationKey string
}

// Server hosts the dialog command ingest and its storage lifecycle.
type Server struct {
	httpListener net.Listener
	httpServer   *http.Server
	grpcListener net.Listener
	grpcServer   *grpc.Server
	health       *health.Server
	store        *dialogsqlite.Store
	handler      *Handler
}

// New creates a configured dialog server.
func New(cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "dialog.db")
	}

	store, err := openDialogStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	catalog, err := drills.OpenEmbeddedCatalog()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open drill catalog: %w", err)
	}

	var validator registration.Validator
	if strings.TrimSpace(cfg.RegistrationURL) != "" {
		validator, err = registration.NewHTTPValidator(cfg.RegistrationURL, cfg.RegistrationKey)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("build registration validator: %w", err)
		}
	}

	handler := NewHandler(engine.New(store), catalog, validator)

	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/v1/commands", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &Server{
		httpListener: httpListener,
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store:   store,
		handler: handler,
	}

	if strings.TrimSpace(cfg.GRPCAddr) != "" {
		grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			server.Close()
			return nil, fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
		}
		grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
		healthServer := health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		server.grpcListener = grpcListener
		server.grpcServer = grpcServer
		server.health = healthServer
	}

	return server, nil
}

// Addr returns the HTTP listener address.
func (s *Server) Addr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// Handler exposes the command handler, for tests and embedding.
func (s *Server) Handler() *Handler {
	if s == nil {
		return nil
	}
	return s.handler
}

// Run creates and serves a dialog server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve runs the HTTP ingest (and health gRPC when configured) until
// context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("dialog server listening at %v", s.httpListener.Addr())
	serveErr := make(chan error, 2)
	go func() {
		err := s.httpServer.Serve(s.httpListener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()
	if s.grpcServer != nil {
		go func() {
			err := s.grpcServer.Serve(s.grpcListener)
			if errors.Is(err, grpc.ErrServerStopped) {
				err = nil
			}
			serveErr <- err
		}()
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown dialog http server: %v", err)
		}
		if s.health != nil {
			s.health.Shutdown()
		}
		if s.grpcServer != nil {
			s.grpcServer.GracefulStop()
		}
		return nil
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve dialog: %w", err)
		}
		return nil
	}
}

// Close releases dialog server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.grpcListener != nil {
		_ = s.grpcListener.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close dialog store: %v", err)
		}
	}
}

func openDialogStore(path string) (*dialogsqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := dialogsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dialog store: %w", err)
	}
	return store, nil
}

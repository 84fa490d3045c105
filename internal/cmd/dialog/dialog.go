// Package dialog parses dialog command flags and launches the dialog
// runtime.
package dialog

import (
	"context"
	"flag"

	entrypoint "github.com/drillwire/drillwire/internal/platform/cmd"
	dialogserver "github.com/drillwire/drillwire/internal/services/dialog/app"
)

// Config holds dialog command configuration.
type Config struct {
	HTTPAddr        string `env:"DRILLWIRE_DIALOG_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr        string `env:"DRILLWIRE_DIALOG_GRPC_ADDR" envDefault:":8081"`
	DBPath          string `env:"DRILLWIRE_DIALOG_DB_PATH" envDefault:"data/dialog.db"`
	RegistrationURL string `env:"DRILLWIRE_REGISTRATION_URL"`
	RegistrationKey string `env:"DRILLWIRE_REGISTRATION_KEY"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The command ingest HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "The health gRPC listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The dialog SQLite database path")
	fs.StringVar(&cfg.RegistrationURL, "registration-url", cfg.RegistrationURL, "The registration validation service URL")
	fs.StringVar(&cfg.RegistrationKey, "registration-key", cfg.RegistrationKey, "The registration validation service API key")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the dialog runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceDialog, func(ctx context.Context) error {
		return dialogserver.Run(ctx, dialogserver.Config{
			HTTPAddr:        cfg.HTTPAddr,
			GRPCAddr:        cfg.GRPCAddr,
			DBPath:          cfg.DBPath,
			RegistrationURL: cfg.RegistrationURL,
			RegistrationKey: cfg.RegistrationKey,
		})
	})
}

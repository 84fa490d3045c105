// Package distributor parses distributor command flags and launches the
// outbox consumer runtime.
package distributor

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/drillwire/drillwire/internal/platform/cmd"
	distributorserver "github.com/drillwire/drillwire/internal/services/distributor/app"
)

// Config holds distributor command configuration.
type Config struct {
	GRPCAddr     string        `env:"DRILLWIRE_DISTRIBUTOR_GRPC_ADDR" envDefault:":8091"`
	DBPath       string        `env:"DRILLWIRE_DIALOG_DB_PATH" envDefault:"data/dialog.db"`
	GatewayURL   string        `env:"DRILLWIRE_SMS_GATEWAY_URL"`
	GatewayKey   string        `env:"DRILLWIRE_SMS_GATEWAY_KEY"`
	GatewayRate  float64       `env:"DRILLWIRE_SMS_GATEWAY_RATE" envDefault:"1"`
	WorkerID     string        `env:"DRILLWIRE_DISTRIBUTOR_WORKER_ID" envDefault:"distributor"`
	BatchSize    int           `env:"DRILLWIRE_DISTRIBUTOR_BATCH_SIZE" envDefault:"10"`
	PollInterval time.Duration `env:"DRILLWIRE_DISTRIBUTOR_POLL_INTERVAL" envDefault:"2s"`
	LeaseTTL     time.Duration `env:"DRILLWIRE_DISTRIBUTOR_LEASE_TTL" envDefault:"30s"`
	MessagePause time.Duration `env:"DRILLWIRE_DISTRIBUTOR_MESSAGE_PAUSE" envDefault:"1s"`
	RetryBackoff time.Duration `env:"DRILLWIRE_DISTRIBUTOR_RETRY_BACKOFF" envDefault:"5s"`
	RetryMaxWait time.Duration `env:"DRILLWIRE_DISTRIBUTOR_RETRY_MAX_WAIT" envDefault:"5m"`
	MaxAttempts  int           `env:"DRILLWIRE_DISTRIBUTOR_MAX_ATTEMPTS" envDefault:"10"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "The health gRPC listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The dialog SQLite database path")
	fs.StringVar(&cfg.GatewayURL, "gateway-url", cfg.GatewayURL, "The SMS gateway URL")
	fs.StringVar(&cfg.GatewayKey, "gateway-key", cfg.GatewayKey, "The SMS gateway API key")
	fs.Float64Var(&cfg.GatewayRate, "gateway-rate", cfg.GatewayRate, "Maximum SMS gateway calls per second")
	fs.StringVar(&cfg.WorkerID, "worker-id", cfg.WorkerID, "Outbox consumer worker id")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Outbox lease batch size")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Outbox poll interval")
	fs.DurationVar(&cfg.LeaseTTL, "lease-ttl", cfg.LeaseTTL, "Outbox lease duration")
	fs.DurationVar(&cfg.MessagePause, "message-pause", cfg.MessagePause, "Pause between messages to the same phone")
	fs.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Base retry backoff delay")
	fs.DurationVar(&cfg.RetryMaxWait, "retry-max-wait", cfg.RetryMaxWait, "Maximum retry delay")
	fs.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Delivery attempts before an outbox entry is dropped")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the distributor runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceDistributor, func(ctx context.Context) error {
		return distributorserver.Run(ctx, distributorserver.Config{
			GRPCAddr:    cfg.GRPCAddr,
			DBPath:      cfg.DBPath,
			GatewayURL:  cfg.GatewayURL,
			GatewayKey:  cfg.GatewayKey,
			GatewayRate: cfg.GatewayRate,
			Worker: distributorserver.WorkerConfig{
				WorkerID:     cfg.WorkerID,
				BatchSize:    cfg.BatchSize,
				PollInterval: cfg.PollInterval,
				LeaseTTL:     cfg.LeaseTTL,
				MessagePause: cfg.MessagePause,
				RetryBackoff: cfg.RetryBackoff,
				RetryMaxWait: cfg.RetryMaxWait,
				MaxAttempts:  cfg.MaxAttempts,
			},
		})
	})
}

package distributor

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfig_ParsesDefaultsAndFlags(t *testing.T) {
	fs := flag.NewFlagSet("distributor", flag.ContinueOnError)
	t.Setenv("DRILLWIRE_SMS_GATEWAY_URL", "https://sms.example/v1/messages")
	t.Setenv("DRILLWIRE_DISTRIBUTOR_LEASE_TTL", "45s")

	cfg, err := ParseConfig(fs, []string{"-worker-id", "distributor-e2e", "-batch-size", "3"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.GatewayURL != "https://sms.example/v1/messages" {
		t.Fatalf("gateway url = %q", cfg.GatewayURL)
	}
	if cfg.LeaseTTL != 45*time.Second {
		t.Fatalf("lease ttl = %v, want 45s", cfg.LeaseTTL)
	}
	if cfg.WorkerID != "distributor-e2e" {
		t.Fatalf("worker id = %q", cfg.WorkerID)
	}
	if cfg.BatchSize != 3 {
		t.Fatalf("batch size = %d, want 3", cfg.BatchSize)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	fs := flag.NewFlagSet("distributor", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("poll interval = %v, want 2s", cfg.PollInterval)
	}
	if cfg.MessagePause != time.Second {
		t.Fatalf("message pause = %v, want 1s", cfg.MessagePause)
	}
	if cfg.GatewayRate != 1 {
		t.Fatalf("gateway rate = %v, want 1", cfg.GatewayRate)
	}
	if cfg.MaxAttempts != 10 {
		t.Fatalf("max attempts = %d, want 10", cfg.MaxAttempts)
	}
}

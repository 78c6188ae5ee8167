package config_test

import (
	"testing"
	"time"

	"github.com/momentics/hioload-rpc/config"
)

func TestDefaultHasSaneQueueAndTimeouts(t *testing.T) {
	cfg := config.Default()
	if !cfg.Enable {
		t.Fatal("expected engine enabled by default")
	}
	if cfg.MaxQueueLength <= 0 {
		t.Fatal("expected a positive default queue length")
	}
	if cfg.WS.ReconnectIntervalMax <= cfg.WS.ReconnectIntervalMin {
		t.Fatal("expected reconnect backoff max to exceed min")
	}
}

func TestLoadOverridesDefaultsAndParsesDurations(t *testing.T) {
	raw := map[string]any{
		"enable":           false,
		"max_queue_length": 64,
		"auth_domain":      "devices",
		"ws": map[string]any{
			"reconnect_interval_min": "2s",
			"idle_close_timeout":     "1m",
		},
	}
	cfg, err := config.Load(raw)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Enable {
		t.Fatal("expected enable overridden to false")
	}
	if cfg.MaxQueueLength != 64 {
		t.Fatalf("expected max_queue_length=64, got %d", cfg.MaxQueueLength)
	}
	if cfg.AuthDomain != "devices" {
		t.Fatalf("expected auth_domain=devices, got %q", cfg.AuthDomain)
	}
	if cfg.WS.ReconnectIntervalMin != 2*time.Second {
		t.Fatalf("expected reconnect_interval_min=2s, got %v", cfg.WS.ReconnectIntervalMin)
	}
	if cfg.WS.IdleCloseTimeout != time.Minute {
		t.Fatalf("expected idle_close_timeout=1m, got %v", cfg.WS.IdleCloseTimeout)
	}
	// A field not present in raw keeps its Default() value.
	if cfg.WS.ReconnectIntervalMax != 30*time.Second {
		t.Fatalf("expected reconnect_interval_max to retain default, got %v", cfg.WS.ReconnectIntervalMax)
	}
}

func TestLoadRejectsNothingForUnknownKeys(t *testing.T) {
	_, err := config.Load(map[string]any{"totally_unknown_key": 1})
	if err != nil {
		t.Fatalf("expected unknown keys to be ignored, got error: %v", err)
	}
}

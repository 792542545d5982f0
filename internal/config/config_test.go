package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Errorf("heartbeat interval = %v, want 30s", cfg.HeartbeatInterval)
	}
	if cfg.ChannelBuffer != 16 {
		t.Errorf("channel buffer = %d, want 16", cfg.ChannelBuffer)
	}
	if cfg.DBBusyTimeout != 5*time.Second {
		t.Errorf("db busy timeout = %v, want 5s", cfg.DBBusyTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SHARELIST_PORT", "9090")
	t.Setenv("SHARELIST_HEARTBEAT_INTERVAL", "10s")
	t.Setenv("SHARELIST_CHANNEL_BUFFER", "32")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.HeartbeatInterval != 10*time.Second {
		t.Errorf("heartbeat interval = %v, want 10s", cfg.HeartbeatInterval)
	}
	if cfg.ChannelBuffer != 32 {
		t.Errorf("channel buffer = %d, want 32", cfg.ChannelBuffer)
	}
}

func TestLoadIgnoresInvalid(t *testing.T) {
	t.Setenv("SHARELIST_CHANNEL_BUFFER", "not-a-number")
	t.Setenv("SHARELIST_HEARTBEAT_INTERVAL", "-5s")

	cfg := Load()

	if cfg.ChannelBuffer != 16 {
		t.Errorf("channel buffer = %d, want fallback 16", cfg.ChannelBuffer)
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Errorf("heartbeat interval = %v, want fallback 30s", cfg.HeartbeatInterval)
	}
}

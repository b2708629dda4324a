package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.Engine.TickPeriod != 5*time.Second {
		t.Errorf("TickPeriod = %v, want 5s", cfg.Engine.TickPeriod)
	}
	if cfg.Engine.DisconnectTimeout != 9*time.Hour {
		t.Errorf("DisconnectTimeout = %v, want 9h", cfg.Engine.DisconnectTimeout)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("device_name: bench-unit\nengine:\n  tick_period: 1s\n  disconnect_timeout: 30s\n  availability_time: 10s\n  stop_on_connect: true\n  record_paths: [\"/Meas/ECG/125\"]\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DeviceName != "bench-unit" {
		t.Errorf("DeviceName = %q, want bench-unit", cfg.DeviceName)
	}
	if !cfg.Engine.StopOnConnect {
		t.Error("StopOnConnect = false, want true")
	}
	if got := cfg.Engine.DisconnectTicks(); got != 30 {
		t.Errorf("DisconnectTicks() = %d, want 30", got)
	}
	if got := cfg.Engine.AvailabilityTicks(); got != 10 {
		t.Errorf("AvailabilityTicks() = %d, want 10", got)
	}
	// Untouched keys keep their defaults.
	if cfg.ServiceUUID != Default().ServiceUUID {
		t.Errorf("ServiceUUID = %q, want default", cfg.ServiceUUID)
	}
}

func TestLoad_RejectsBadWindows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("engine:\n  tick_period: 10s\n  disconnect_timeout: 1s\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load succeeded with disconnect_timeout below one tick")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetAndGetConfig(t *testing.T) {
	defer SetConfig(nil)

	if got := GetConfig(); got != nil {
		t.Fatalf("GetConfig before Set = %v, want nil", got)
	}

	cfg := NewDefault()
	SetConfig(cfg)
	if got := GetConfig(); got != cfg {
		t.Error("GetConfig did not return the set instance")
	}
}

func TestMustGetConfig_Panics(t *testing.T) {
	defer SetConfig(nil)
	SetConfig(nil)

	defer func() {
		if recover() == nil {
			t.Error("MustGetConfig did not panic without initialization")
		}
	}()
	MustGetConfig()
}

func TestReloadConfig(t *testing.T) {
	defer SetConfig(nil)

	path := filepath.Join(t.TempDir(), "slate.yaml")
	if err := os.WriteFile(path, []byte("scheduler:\n  interval: 2h\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := ReloadConfig(path); err != nil {
		t.Fatalf("ReloadConfig failed: %v", err)
	}
	if got := GetConfig().Scheduler.Interval.String(); got != "2h0m0s" {
		t.Errorf("interval after reload = %s, want 2h0m0s", got)
	}

	// A failing reload must leave the current config in place.
	prev := GetConfig()
	if err := ReloadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error reloading missing file")
	}
	if GetConfig() != prev {
		t.Error("failed reload replaced the active config")
	}
}

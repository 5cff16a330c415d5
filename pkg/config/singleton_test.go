package config

import (
	"sync"
	"testing"
)

func resetGlobal() {
	globalConfig = nil
	globalPath = ""
	initOnce = *new(sync.Once)
}

func TestInitialize(t *testing.T) {
	resetGlobal()
	defer resetGlobal()

	path := writeFile(t, t.TempDir(), "config.yaml", "gateway:\n  port: 3333\n")

	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config after initialization")
	}
	if cfg.Gateway.Port != 3333 {
		t.Errorf("expected port 3333, got %d", cfg.Gateway.Port)
	}
	if Path() != path {
		t.Errorf("expected path %q, got %q", path, Path())
	}

	// Second call is ignored
	other := writeFile(t, t.TempDir(), "config.yaml", "gateway:\n  port: 4444\n")
	if err := Initialize(other); err != nil {
		t.Fatalf("second Initialize returned error: %v", err)
	}
	if GetConfig().Gateway.Port != 3333 {
		t.Errorf("expected first config to remain, got port %d", GetConfig().Gateway.Port)
	}
}

func TestReloadConfig_KeepsOldOnFailure(t *testing.T) {
	resetGlobal()
	defer resetGlobal()

	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "gateway:\n  port: 3001\n")
	if err := Initialize(path); err != nil {
		t.Fatal(err)
	}

	writeFile(t, dir, "config.yaml", "gateway:\n  port: -5\n")
	if err := ReloadConfig(path); err == nil {
		t.Fatal("expected reload of invalid config to fail")
	}
	if GetConfig().Gateway.Port != 3001 {
		t.Errorf("expected old config to remain, got port %d", GetConfig().Gateway.Port)
	}

	writeFile(t, dir, "config.yaml", "gateway:\n  port: 3002\n")
	if err := ReloadConfig(path); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if GetConfig().Gateway.Port != 3002 {
		t.Errorf("expected reloaded port 3002, got %d", GetConfig().Gateway.Port)
	}
}

func TestMustGetConfig_Panics(t *testing.T) {
	resetGlobal()
	defer resetGlobal()

	defer func() {
		if recover() == nil {
			t.Error("expected panic when config not initialized")
		}
	}()
	MustGetConfig()
}

func TestSetConfig(t *testing.T) {
	resetGlobal()
	defer resetGlobal()

	cfg := NewDefaultConfig()
	SetConfig(cfg)
	if GetConfig() != cfg {
		t.Error("expected SetConfig to replace the global instance")
	}
}

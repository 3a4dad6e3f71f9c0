package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("BOT_OWNERS", "1,2")

	cfg, _, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Prefix != "!" || cfg.UnitsDir != "units" || cfg.LoadWorkers != 8 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.PublishOnStart || cfg.PublishTimeout != 30*time.Second || cfg.CooldownSweep != "@every 1m" {
		t.Fatalf("unexpected publish defaults: %+v", cfg)
	}
	if len(cfg.Owners) != 2 || cfg.Owners[1] != "2" {
		t.Fatalf("owners = %v", cfg.Owners)
	}
	if cfg.Colors.Red != 0xED4245 {
		t.Fatalf("red = %x", cfg.Colors.Red)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("BOT_PREFIX=?\nLOAD_WORKERS=3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BOT_PREFIX", "")
	os.Unsetenv("BOT_PREFIX")
	t.Setenv("LOAD_WORKERS", "")
	os.Unsetenv("LOAD_WORKERS")

	cfg, found, err := Load(path)
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if cfg.Prefix != "?" || cfg.LoadWorkers != 3 {
		t.Fatalf("prefix=%q workers=%d", cfg.Prefix, cfg.LoadWorkers)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{Prefix: "!", LoadWorkers: -1}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"DISCORD_TOKEN", "LOAD_WORKERS"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

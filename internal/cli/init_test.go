package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/onionpan/internal/collector"
	"github.com/ppiankov/onionpan/internal/config"
)

func TestInitActionWritesFiles(t *testing.T) {
	oldConfigDir := configDir
	t.Cleanup(func() { configDir = oldConfigDir })
	configDir = filepath.Join(t.TempDir(), "cfg")

	out, err := captureStdout(t, func() error { return initAction(nil, nil) })
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	requireContains(t, out, "with 3 files")

	script, err := os.ReadFile(filepath.Join(configDir, collector.FileName))
	if err != nil {
		t.Fatalf("read script: %v", err)
	}
	if !bytes.Equal(script, collector.Script) {
		t.Error("installed script differs from embedded script")
	}
	info, err := os.Stat(filepath.Join(configDir, collector.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("script mode = %v, want executable", info.Mode().Perm())
	}

	// The example config must load once credentials exist.
	t.Setenv(config.DefaultAPIIDEnv, "1")
	t.Setenv(config.DefaultAPIHashEnv, "h")
	cfg, err := config.Load(configDir)
	if err != nil {
		t.Fatalf("load example config: %v", err)
	}
	if cfg.Telegram.Channel != config.DefaultChannel {
		t.Errorf("channel = %q", cfg.Telegram.Channel)
	}
	if cfg.Telegram.Script != filepath.Join(configDir, collector.FileName) {
		t.Errorf("script = %q", cfg.Telegram.Script)
	}
}

func TestInitActionKeepsExisting(t *testing.T) {
	oldConfigDir := configDir
	t.Cleanup(func() { configDir = oldConfigDir })
	configDir = t.TempDir()

	custom := []byte("telegram:\n  channel: mine\n")
	if err := os.WriteFile(filepath.Join(configDir, config.DefaultConfigFile), custom, 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := captureStdout(t, func() error { return initAction(nil, nil) })
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	requireContains(t, out, "exists: ")
	requireContains(t, out, "with 2 files")

	got, _ := os.ReadFile(filepath.Join(configDir, config.DefaultConfigFile))
	if !bytes.Equal(got, custom) {
		t.Errorf("config overwritten: %q", got)
	}

	out, err = captureStdout(t, func() error { return initAction(nil, nil) })
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	requireContains(t, out, "already initialized")
}

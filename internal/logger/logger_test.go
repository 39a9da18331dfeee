package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseLevel_Unknown(t *testing.T) {
	if _, err := ParseLevel("chatty"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := New(Config{Level: "debug", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Info("hello", String("channel", "toronionlinks"))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := strings.TrimSpace(string(data))
	if !strings.HasPrefix(line, "{") || !strings.Contains(line, `"channel":"toronionlinks"`) {
		t.Errorf("production output = %q, want JSON", line)
	}
}

func TestNew_DevelopmentConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.log")
	l, err := New(Config{Level: "info", Development: true, OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Info("hello", String("channel", "toronionlinks"))
	l.Debug("hidden")
	l.Warn("careful")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if strings.HasPrefix(out, "{") {
		t.Errorf("development output is JSON: %q", out)
	}
	if !strings.Contains(out, "INFO") || !strings.Contains(out, "hello") {
		t.Errorf("development output = %q, want console INFO line", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug entry written at info level")
	}
	if !strings.Contains(out, "TestNew_DevelopmentConsole") {
		t.Errorf("warn entry missing stack trace: %q", out)
	}
}

func TestWith_CarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core)).With(String("component", "pipeline"))

	l.Warn("stale batch", Int64("newest_id", 9))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["component"] != "pipeline" {
		t.Errorf("component = %v, want pipeline", ctx["component"])
	}
	if ctx["newest_id"] != int64(9) {
		t.Errorf("newest_id = %v, want 9", ctx["newest_id"])
	}
}

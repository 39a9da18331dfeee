package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/onionpan/internal/config"
)

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("open stdout pipe: %v", err)
	}

	os.Stdout = writer
	runErr := fn()
	_ = writer.Close()
	os.Stdout = oldStdout

	out, readErr := io.ReadAll(reader)
	_ = reader.Close()
	if readErr != nil {
		t.Fatalf("read stdout pipe: %v", readErr)
	}
	return string(out), runErr
}

func requireContains(t *testing.T, got, want string) {
	t.Helper()

	if !strings.Contains(got, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, got)
	}
}

// setupConfigDir writes a config pointing output and checkpoint into dir and
// makes it the active config directory for the test.
func setupConfigDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv(config.DefaultAPIIDEnv, "12345")
	t.Setenv(config.DefaultAPIHashEnv, "abcdef")

	cfg := "telegram:\n" +
		"  channel: toronionlinks\n" +
		"output:\n" +
		"  path: " + filepath.Join(dir, "onion_links.json") + "\n" +
		"checkpoint:\n" +
		"  path: " + filepath.Join(dir, "last_message_id.txt") + "\n" +
		"log:\n" +
		"  level: error\n"
	if err := os.WriteFile(filepath.Join(dir, config.DefaultConfigFile), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	oldConfigDir := configDir
	t.Cleanup(func() { configDir = oldConfigDir })
	configDir = dir
	return dir
}

package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/onionpan/internal/logger"
)

func newTestFile(t *testing.T) *File {
	t.Helper()
	return NewFile(filepath.Join(t.TempDir(), "last_message_id.txt"), logger.NewNop())
}

func TestLoad_Missing(t *testing.T) {
	f := newTestFile(t)
	if id, ok := f.Load(); ok {
		t.Fatalf("Load() = %d, true; want absent", id)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f := newTestFile(t)
	f.Save(42)

	id, ok := f.Load()
	if !ok {
		t.Fatal("expected checkpoint after save")
	}
	if id != 42 {
		t.Errorf("id = %d, want 42", id)
	}
}

func TestSave_Overwrites(t *testing.T) {
	f := newTestFile(t)
	f.Save(123456)
	f.Save(7)

	data, err := os.ReadFile(f.Path())
	if err != nil {
		t.Fatalf("read checkpoint: %v", err)
	}
	if string(data) != "7" {
		t.Errorf("file content = %q, want 7", data)
	}
}

func TestSave_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "nested", "last_message_id.txt")
	f := NewFile(path, logger.NewNop())
	f.Save(9)

	if id, ok := f.Load(); !ok || id != 9 {
		t.Errorf("Load() = %d, %v; want 9, true", id, ok)
	}
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f := NewFile(filepath.Join(dir, "cp.txt"), logger.NewNop())
	f.Save(1)
	f.Save(2)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries in dir, want 1", len(entries))
	}
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"text", "not-a-number"},
		{"empty", ""},
		{"whitespace", "  \n"},
		{"negative", "-5"},
		{"float", "12.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFile(t)
			if err := os.WriteFile(f.Path(), []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write checkpoint: %v", err)
			}
			if id, ok := f.Load(); ok {
				t.Errorf("Load() = %d, true; want absent", id)
			}
		})
	}
}

func TestLoad_TrimsWhitespace(t *testing.T) {
	f := newTestFile(t)
	if err := os.WriteFile(f.Path(), []byte(" 77\n"), 0o644); err != nil {
		t.Fatalf("write checkpoint: %v", err)
	}
	id, ok := f.Load()
	if !ok || id != 77 {
		t.Errorf("Load() = %d, %v; want 77, true", id, ok)
	}
}

func TestSave_UnwritableDoesNotPanic(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	// Parent "directory" is a regular file, so MkdirAll fails.
	f := NewFile(filepath.Join(blocker, "cp.txt"), logger.NewNop())
	f.Save(5)

	if _, ok := f.Load(); ok {
		t.Error("expected no checkpoint after failed save")
	}
}

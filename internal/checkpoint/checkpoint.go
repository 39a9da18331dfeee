// Package checkpoint persists the id of the last processed channel message.
package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ppiankov/onionpan/internal/logger"
)

// File stores the checkpoint as a decimal string in a single text file.
type File struct {
	path string
	log  logger.Logger
}

func NewFile(path string, log logger.Logger) *File {
	return &File{path: path, log: log.With(logger.String("checkpoint", path))}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Load returns the stored id. A missing, unreadable or malformed file yields
// ok == false; only the latter two are logged.
func (f *File) Load() (int64, bool) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false
	}
	if err != nil {
		f.log.Warn("read checkpoint", logger.Error(err))
		return 0, false
	}

	id, err := parse(data)
	if err != nil {
		f.log.Warn("ignoring malformed checkpoint", logger.Error(err))
		return 0, false
	}
	return id, true
}

// Save replaces the stored id. Failures are logged, not returned.
func (f *File) Save(id int64) {
	if err := writeAtomic(f.path, []byte(strconv.FormatInt(id, 10))); err != nil {
		f.log.Error("save checkpoint", logger.Int64("message_id", id), logger.Error(err))
		return
	}
	f.log.Info("checkpoint advanced", logger.Int64("message_id", id))
}

func parse(data []byte) (int64, error) {
	s := strings.TrimSpace(string(data))
	if s == "" {
		return 0, errors.New("empty checkpoint")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse checkpoint %q: %w", s, err)
	}
	if id < 0 {
		return 0, fmt.Errorf("negative checkpoint %d", id)
	}
	return id, nil
}

// writeAtomic writes data to a temp file next to path and renames it over path,
// so readers see either the old or the new content.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

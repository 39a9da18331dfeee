package discovery

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/onionpan/internal/logger"
)

const maxLineLength = 1 << 20 // 1 MiB per JSONL line

// Sink appends records to a JSONL file, creating it when absent.
type Sink struct {
	path string
	log  logger.Logger
}

func NewSink(path string, log logger.Logger) *Sink {
	return &Sink{path: path, log: log.With(logger.String("output", path))}
}

// Path returns the output file path.
func (s *Sink) Path() string {
	return s.path
}

// Append writes each record as one JSON line, in order. Write failures are
// logged and the records are dropped. It returns how many lines were written.
func (s *Sink) Append(records []Record) int {
	if len(records) == 0 {
		return 0
	}

	n, err := s.append(records)
	if err != nil {
		s.log.Error("append records",
			logger.Int("written", n),
			logger.Int("dropped", len(records)-n),
			logger.Error(err),
		)
		return n
	}

	s.log.Info("saved links", logger.Int("count", n))
	return n
}

func (s *Sink) append(records []Record) (int, error) {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open output: %w", err)
	}

	n, err := writeRecords(f, records)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		return n, fmt.Errorf("close output: %w", closeErr)
	}
	return n, err
}

// writeRecords encodes each record separately so a failure leaves only whole lines.
func writeRecords(w io.Writer, records []Record) (int, error) {
	for i, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return i, fmt.Errorf("encode record %d: %w", i, err)
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return i, fmt.Errorf("write record %d: %w", i, err)
		}
	}
	return len(records), nil
}

// ReadLog parses a JSONL discovery log. Blank lines are skipped.
func ReadLog(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	var records []Record
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: invalid json: %w", lineNum, err)
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}

	return records, nil
}

// ReadLogFile reads the log at path. A missing file yields no records.
func ReadLogFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadLog(f)
}

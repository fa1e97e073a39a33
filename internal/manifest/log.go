package manifest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// maxLineSize bounds a single record line; classification notes are the only
// free-form field and stay far below this.
const maxLineSize = 4 << 20

// Log is an append-only JSONL record log. Appends from one process are
// serialised; each record is written with a single write on an O_APPEND
// descriptor so lines from separate processes do not interleave mid-record.
type Log struct {
	path string
	mu   sync.Mutex
}

// Open returns a Log backed by path. The file is created on first append.
func Open(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file path.
func (l *Log) Path() string { return l.path }

// Append writes the records in order. It stops at the first failure.
func (l *Log) Append(records ...Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	//nolint:gosec // G304: manifest path comes from configuration
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}

	for _, r := range records {
		line, err := EncodeRecord(r)
		if err != nil {
			_ = f.Close()
			return err
		}
		if _, err := f.Write(line); err != nil {
			_ = f.Close()
			return fmt.Errorf("append %s record: %w", r.Type(), err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}
	return nil
}

// ReadAll parses every non-blank line. A missing file is an empty log.
func (l *Log) ReadAll() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	var records []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		r, err := ParseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", l.path, lineNo, err)
		}
		records = append(records, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return records, nil
}

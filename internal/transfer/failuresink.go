package transfer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FailureSink is an append-only JSON-Lines writer to a canonical log
// path, serialized through a single mutex so concurrent workers never
// interleave partial lines (§4.8).
type FailureSink struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	broken  bool
	wrote   bool
	encoder *json.Encoder
}

// NewFailureSink opens path for append, creating its parent directory if
// needed. On any failure to open, it prints a one-line stderr warning and
// returns a sink that silently drops every subsequent write — the run
// continues and the final summary omits failures_path.
func NewFailureSink(path string) *FailureSink {
	s := &FailureSink{path: path}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to create failure log directory %s: %v\n", filepath.Dir(path), err)
		s.broken = true
		return s
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to open failure log %s: %v\n", path, err)
		s.broken = true
		return s
	}
	s.file = f
	s.encoder = json.NewEncoder(f)
	return s
}

// Write appends one FailureRecord as a single JSON line.
func (s *FailureSink) Write(e *TransferError) {
	if s.broken {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.encoder.Encode(e); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to write failure record: %v\n", err)
		return
	}
	s.wrote = true
}

// Path returns the log path if the sink is usable and at least one record
// was written, "" otherwise — used to populate (or omit) the summary's
// failures_path field.
func (s *FailureSink) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken || !s.wrote {
		return ""
	}
	return s.path
}

// Close closes the underlying file handle, if any.
func (s *FailureSink) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

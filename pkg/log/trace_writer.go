package log

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// TraceWriter appends events to a trace file. Write errors never reach the
// caller of Log; the first one is kept and returned by Close.
type TraceWriter struct {
	mu     sync.Mutex
	file   *os.File
	enc    *cbor.Encoder
	count  int
	err    error
	closed bool
}

// CreateTrace opens the trace file at path for appending, creating it
// if needed.
func CreateTrace(path string) (*TraceWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &TraceWriter{file: f, enc: newTraceEncoder(f)}, nil
}

// Log appends event. Events logged after Close are dropped.
func (w *TraceWriter) Log(event Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if err := w.enc.Encode(event); err != nil {
		if w.err == nil {
			w.err = err
		}
		return
	}
	w.count++
}

// Count returns the number of events written.
func (w *TraceWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Path returns the trace file path.
func (w *TraceWriter) Path() string {
	return w.file.Name()
}

// Close closes the file and returns the first write error, if any.
// Further calls return nil.
func (w *TraceWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.file.Close(); err != nil && w.err == nil {
		w.err = err
	}
	return w.err
}

var _ Logger = (*TraceWriter)(nil)

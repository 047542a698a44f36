// Package log writes the raw per-session update log: one compressed
// JSONL entry per published stack revision or service request. The
// transcript database is the queryable record; this is the cheap
// append-everything stream for offline replay and debugging.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"skald.games/internal/protocol"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// UpdateEntry is one line of the update log.
type UpdateEntry struct {
	At       string                   `json:"at"`
	Kind     string                   `json:"kind"` // "stack" or "service"
	Revision uint64                   `json:"revision,omitempty"`
	Stack    *protocol.UiStack        `json:"stack,omitempty"`
	Service  *protocol.ServiceRequest `json:"service,omitempty"`
}

// UpdateLogger records published revisions and service requests
// (compressed). It satisfies the session runner's Recorder.
type UpdateLogger struct{ w *JSONLZstdWriter }

func NewUpdateLogger(sessionDir string) *UpdateLogger {
	return &UpdateLogger{w: NewJSONLZstdWriter(filepath.Join(sessionDir, "updates"), "updates")}
}

func (l *UpdateLogger) RecordStack(revision uint64, stack protocol.UiStack) {
	_ = l.w.Write(UpdateEntry{
		At:       time.Now().UTC().Format(time.RFC3339Nano),
		Kind:     "stack",
		Revision: revision,
		Stack:    &stack,
	})
}

func (l *UpdateLogger) RecordService(req protocol.ServiceRequest) {
	_ = l.w.Write(UpdateEntry{
		At:      time.Now().UTC().Format(time.RFC3339Nano),
		Kind:    "service",
		Service: &req,
	})
}

func (l *UpdateLogger) Close() error { return l.w.Close() }

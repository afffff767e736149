package output

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RawWriter persists raw, unparsed chunks for Monitor Mode (§6: "persist
// raw chunks and skip parsing"), one file per (day, site[, register]),
// newline-delimited in arrival order. Mirrors Writer's lazy-open/per-day
// rollover shape but with no CSV framing, since a raw chunk has no column
// schema to honor.
type RawWriter struct {
	dir      string
	siteID   string
	register string
	now      func() time.Time

	file    *os.File
	openDay string
}

// NewRawWriter returns a RawWriter rooted at dir for the given site/register.
func NewRawWriter(dir, siteID, register string) *RawWriter {
	return &RawWriter{dir: dir, siteID: siteID, register: register, now: time.Now}
}

// SetClock overrides the time source, for deterministic tests.
func (w *RawWriter) SetClock(now func() time.Time) { w.now = now }

func (w *RawWriter) fileName(day string) string {
	name := fmt.Sprintf("%s_%s", day, w.siteID)
	if w.register != "" {
		name += "_" + w.register
	}
	return filepath.Join(w.dir, name+".raw")
}

// WriteChunk appends one raw chunk, creating the day's file on first write.
// Implements engine.RawRecorder.
func (w *RawWriter) WriteChunk(chunk string) error {
	day := w.now().Format("20060102")
	if err := w.ensureOpen(day); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w.file, chunk); err != nil {
		return fmt.Errorf("output: write raw chunk: %w", err)
	}
	return nil
}

func (w *RawWriter) ensureOpen(day string) error {
	if w.file != nil && w.openDay == day {
		return nil
	}
	w.Close()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("output: mkdir: %w", err)
	}
	f, err := os.OpenFile(w.fileName(day), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("output: open %s: %w", w.fileName(day), err)
	}
	w.file = f
	w.openDay = day
	return nil
}

// Close closes the underlying file, mirroring Writer.Close.
func (w *RawWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.openDay = ""
	return err
}

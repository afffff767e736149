// Package serialio implements §6's serial producer collaborator: a
// synchronous function yielding one optional text chunk per call, so the
// Engine's cooperative loop consumes at most one chunk per call.
package serialio

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// ChunkSource yields at most one chunk per call. Next returns ok=false (no
// error) when no chunk is currently available, so the caller can yield back
// to the cooperative loop rather than block.
type ChunkSource interface {
	Next(ctx context.Context) (chunk string, ok bool, err error)
}

// LineSource accumulates bytes from an io.Reader into newline-delimited
// chunks, the way the 420 dialect's line-per-event stream is framed. Each
// Next call returns at most one line. It reads with bufio.Reader.ReadString,
// which blocks until a newline, EOF or a read error arrives; it does not
// return early when the reader has no data yet.
//
// Grounded in the accumulate-then-flush-on-delimiter idiom used for
// line-mode UART framing, adapted here to the spec's one-chunk-per-call
// contract instead of a background goroutine pushing to a channel.
type LineSource struct {
	r       *bufio.Reader
	closer  io.Closer
	maxLine int
}

// New wraps r (and, if it implements io.Closer, arranges for Close to close
// it) as a ChunkSource. maxLine sets the read buffer size (4096 if zero or
// negative); it does not limit line length, and a longer line is still
// returned whole.
func New(r io.Reader, maxLine int) *LineSource {
	if maxLine <= 0 {
		maxLine = 4096
	}
	closer, _ := r.(io.Closer)
	return &LineSource{r: bufio.NewReaderSize(r, maxLine), closer: closer, maxLine: maxLine}
}

// Next returns the next newline-delimited chunk, with the trailing CR/LF
// stripped. ok is false (no error) on EOF-so-far (nothing to read yet);
// err is non-nil only for a genuine read failure other than io.EOF.
func (s *LineSource) Next(ctx context.Context) (string, bool, error) {
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	default:
	}

	line, err := s.r.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			if line == "" {
				return "", false, nil
			}
			// Partial line at EOF: hand it back as-is; the normalizer
			// trims trailing CR/LF regardless.
			return trimEOL(line), true, nil
		}
		return "", false, fmt.Errorf("serialio: read: %w", err)
	}
	return trimEOL(line), true, nil
}

// Close releases the underlying reader if it supports closing.
func (s *LineSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

package serialio

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestNextReturnsOneLinePerCall(t *testing.T) {
	src := New(strings.NewReader("line one\r\nline two\n"), 0)
	ctx := context.Background()

	chunk, ok, err := src.Next(ctx)
	if err != nil || !ok || chunk != "line one" {
		t.Fatalf("first Next = %q, %v, %v", chunk, ok, err)
	}
	chunk, ok, err = src.Next(ctx)
	if err != nil || !ok || chunk != "line two" {
		t.Fatalf("second Next = %q, %v, %v", chunk, ok, err)
	}
	_, ok, err = src.Next(ctx)
	if err != nil || ok {
		t.Fatalf("expected ok=false, err=nil at EOF, got ok=%v err=%v", ok, err)
	}
}

func TestNextReturnsPartialLineAtEOF(t *testing.T) {
	src := New(strings.NewReader("no trailing newline"), 0)
	chunk, ok, err := src.Next(context.Background())
	if err != nil || !ok || chunk != "no trailing newline" {
		t.Fatalf("got %q, %v, %v", chunk, ok, err)
	}
	_, ok, err = src.Next(context.Background())
	if ok || err != nil {
		t.Fatalf("expected a clean EOF on the next call, got ok=%v err=%v", ok, err)
	}
}

func TestNextRespectsContextCancellation(t *testing.T) {
	src := New(strings.NewReader("line\n"), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := src.Next(ctx)
	if ok || err == nil {
		t.Fatalf("expected cancellation error, got ok=%v err=%v", ok, err)
	}
}

type errReader struct{}

func (errReader) Read(p []byte) (int, error) { return 0, errors.New("boom") }

func TestNextPropagatesReadErrors(t *testing.T) {
	src := New(errReader{}, 0)
	_, ok, err := src.Next(context.Background())
	if ok || err == nil {
		t.Fatalf("expected a propagated read error, got ok=%v err=%v", ok, err)
	}
}

type closeTrackingReader struct {
	io.Reader
	closed bool
}

func (c *closeTrackingReader) Close() error {
	c.closed = true
	return nil
}

func TestCloseClosesUnderlyingReaderIfCloser(t *testing.T) {
	r := &closeTrackingReader{Reader: strings.NewReader("x\n")}
	src := New(r, 0)
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !r.closed {
		t.Errorf("expected underlying reader to be closed")
	}
}

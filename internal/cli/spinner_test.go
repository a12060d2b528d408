package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureSpinner(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	prev := spinnerOut
	spinnerOut = buf
	t.Cleanup(func() { spinnerOut = prev })
	return buf
}

func TestSpinnerRendersMessage(t *testing.T) {
	buf := captureSpinner(t)

	s := newSpinner("Processing 3 images...")
	s.Start()
	time.Sleep(150 * time.Millisecond)
	s.Stop()

	if !strings.Contains(buf.String(), "Processing 3 images...") {
		t.Errorf("spinner output %q does not contain the message", buf.String())
	}
}

func TestSpinnerCancellation(t *testing.T) {
	captureSpinner(t)

	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"cancel", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}},
		{"timeout", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 20*time.Millisecond)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			defer cancel()

			s := newSpinnerWithContext(ctx, "Waiting...")
			s.Start()
			time.Sleep(100 * time.Millisecond)

			if !s.Cancelled() {
				t.Error("spinner should be cancelled")
			}
			s.Stop()
		})
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	captureSpinner(t)

	s := newSpinner("Stopping...")
	s.Start()
	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithStatus(t *testing.T) {
	captureSpinner(t)
	out := captureStdout(t)

	s := newSpinner("Working...")
	s.Start()
	s.StopWithSuccess("Done")

	s = newSpinner("Working...")
	s.Start()
	s.StopWithError("Failed")

	got := out.String()
	for _, want := range []string{"Done", "Failed"} {
		if !strings.Contains(got, want) {
			t.Errorf("stdout %q missing %q", got, want)
		}
	}
}

// Package playback writes text as if it were typed, one rune at a time.
package playback

import (
	"context"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/muesli/reflow/ansi"
	"golang.org/x/term"
)

// DefaultCPS is the default typing speed in characters per second.
const DefaultCPS = 50

// Option configures a Writer.
type Option func(*Writer)

// WithEnabled forces the delay on or off. By default it is on only when
// the destination is a terminal.
func WithEnabled(enabled bool) Option {
	return func(w *Writer) {
		w.enabled = enabled
	}
}

// WithContext aborts pending delays when ctx is done.
func WithContext(ctx context.Context) Option {
	return func(w *Writer) {
		if ctx != nil {
			w.ctx = ctx
		}
	}
}

// WithSleep replaces the function waiting between runes.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(w *Writer) {
		if sleep != nil {
			w.sleep = sleep
		}
	}
}

// Writer delays every printable rune written to it by 1s/cps. Bytes of
// ANSI escape sequences pass through without delay.
type Writer struct {
	w       io.Writer
	delay   time.Duration
	enabled bool
	ctx     context.Context
	sleep   func(context.Context, time.Duration) error

	inEscape bool
	partial  [utf8.UTFMax]byte
	npartial int
}

// NewWriter wraps w typing cps characters per second; cps <= 0 disables
// the delay.
func NewWriter(w io.Writer, cps int, opts ...Option) *Writer {
	pw := &Writer{
		w:       w,
		enabled: IsTerminal(w),
		ctx:     context.Background(),
		sleep:   sleepContext,
	}
	if cps > 0 {
		pw.delay = time.Second / time.Duration(cps)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(pw)
		}
	}
	return pw
}

// Delay returns the pause before each rune.
func (w *Writer) Delay() time.Duration {
	return w.delay
}

// Enabled reports whether writes are delayed.
func (w *Writer) Enabled() bool {
	return w.enabled && w.delay > 0
}

// Write writes p rune by rune. A rune split across calls is written once
// it is complete.
func (w *Writer) Write(p []byte) (int, error) {
	if !w.Enabled() {
		return w.w.Write(p)
	}
	n := len(p)
	buf := p
	if w.npartial > 0 {
		buf = append(w.partial[:w.npartial:w.npartial], p...)
		w.npartial = 0
	}
	for len(buf) > 0 {
		if !utf8.FullRune(buf) {
			w.npartial = copy(w.partial[:], buf)
			return n, nil
		}
		_, size := utf8.DecodeRune(buf)
		if err := w.writeRune(buf[:size]); err != nil {
			return 0, err
		}
		buf = buf[size:]
	}
	return n, nil
}

// Flush writes a trailing incomplete rune as is.
func (w *Writer) Flush() error {
	if w.npartial == 0 {
		return nil
	}
	_, err := w.w.Write(w.partial[:w.npartial])
	w.npartial = 0
	return err
}

func (w *Writer) writeRune(b []byte) error {
	r, _ := utf8.DecodeRune(b)
	switch {
	case r == ansi.Marker:
		w.inEscape = true
	case w.inEscape:
		if ansi.IsTerminator(r) {
			w.inEscape = false
		}
	default:
		if err := w.sleep(w.ctx, w.delay); err != nil {
			return err
		}
	}
	_, err := w.w.Write(b)
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

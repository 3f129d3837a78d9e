package mdfmt

import (
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"
)

var formatterPool = sync.Pool{
	New: func() any {
		return &Formatter{}
	},
}

// FormatRequest configures Format.
type FormatRequest struct {
	Events iter.Seq[Event]
	Writer io.Writer
	// State, when set, is resumed and updated in place.
	State   *State
	Options []Option
}

// Format serializes an event stream to Markdown and returns the final state.
// Errors from Writer are returned unchanged and abort the pass.
func Format(req FormatRequest) (State, error) {
	if req.Events == nil {
		return State{}, fmt.Errorf("format: events is nil")
	}
	if req.Writer == nil {
		return State{}, fmt.Errorf("format: writer is nil")
	}
	f := formatterPool.Get().(*Formatter)
	f.resetWithOptions(req.Writer, req.State, buildOptions(req.Options))
	err := Copy(f, req.Events)
	out := f.state.Clone()
	f.resetWithOptions(io.Discard, nil, Options{})
	formatterPool.Put(f)
	return out, err
}

// FormatEvents serializes events to w, resuming from state when it is non-nil.
func FormatEvents(w io.Writer, state *State, events []Event, opts ...Option) (State, error) {
	return Format(FormatRequest{
		Events:  Events(events),
		Writer:  w,
		State:   state,
		Options: opts,
	})
}

// FormatString serializes events from an empty state and returns the text.
func FormatString(events []Event, opts ...Option) (string, State) {
	var b strings.Builder
	// strings.Builder never fails.
	state, _ := FormatEvents(&b, nil, events, opts...)
	return b.String(), state
}

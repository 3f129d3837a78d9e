package mdfmt

import "iter"

// Sink receives events one at a time. Formatter is the Markdown sink;
// preprocessing stages write into any Sink.
type Sink interface {
	WriteEvent(Event) error
}

// EventBuffer is a Sink collecting events in memory.
type EventBuffer struct {
	Events []Event
}

// WriteEvent appends e.
func (b *EventBuffer) WriteEvent(e Event) error {
	b.Events = append(b.Events, e)
	return nil
}

// All iterates the collected events.
func (b *EventBuffer) All() iter.Seq[Event] {
	return Events(b.Events)
}

// Reset drops the collected events, keeping the allocation.
func (b *EventBuffer) Reset() {
	b.Events = b.Events[:0]
}

type discardSink struct{}

func (discardSink) WriteEvent(Event) error { return nil }

// Discard is a Sink that drops every event.
var Discard Sink = discardSink{}

// Copy writes every event of src to dst, stopping at the first error.
func Copy(dst Sink, src iter.Seq[Event]) error {
	for e := range src {
		if err := dst.WriteEvent(e); err != nil {
			return err
		}
	}
	return nil
}

// Events iterates a slice of events.
func Events(events []Event) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for _, e := range events {
			if !yield(e) {
				return
			}
		}
	}
}

package provider

import (
	"iter"
	"sync/atomic"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

// SingleUse wraps seq so it can be ranged over once. Later ranges yield a
// single Error event carrying ErrStreamConsumed.
func SingleUse(runID uuid.UUID, seq iter.Seq[StreamEvent]) iter.Seq[StreamEvent] {
	var used atomic.Bool
	return func(yield func(StreamEvent) bool) {
		if !used.CompareAndSwap(false, true) {
			yield(Error{RunID: runID, Err: ErrStreamConsumed, Timestamp: Now()})
			return
		}
		seq(yield)
	}
}

// Events returns a sequence that yields the given events in order.
func Events(events ...StreamEvent) iter.Seq[StreamEvent] {
	return func(yield func(StreamEvent) bool) {
		for _, ev := range events {
			if !yield(ev) {
				return
			}
		}
	}
}

// Now returns the current time as an event timestamp.
func Now() strfmt.DateTime {
	return strfmt.DateTime(time.Now().UTC())
}

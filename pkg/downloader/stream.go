package downloader

import "context"

// Stream is a lazy, cancellable sequence of Events for one Download call.
// The producer goroutine closes Events() when the attempt ends (whether
// by completing every planned file, hitting an error, or being
// canceled); Err() is only meaningful after that close.
type Stream struct {
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Events returns the channel of events. Range over it until it closes.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Cancel aborts the in-flight fetch and stops the stream at the next
// suspension point. Safe to call multiple times or after the stream has
// already finished.
func (s *Stream) Cancel() {
	s.cancel()
}

// Err returns the terminal error, if any, once Events() has closed. Nil
// means every planned file streamed to completion.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

// send delivers an event, respecting cancellation so a blocked channel
// send can't outlive a canceled context.
func (s *Stream) send(ctx context.Context, e Event) {
	select {
	case s.events <- e:
	case <-ctx.Done():
	}
}

// NewTestStream builds a Stream pre-loaded with events and a terminal
// error, for exercising a Downloader consumer (pkg/applier) without a
// real HTTP round trip.
func NewTestStream(events []Event, err error) *Stream {
	s := &Stream{
		events: make(chan Event, len(events)),
		cancel: func() {},
		done:   make(chan struct{}),
	}
	for _, e := range events {
		s.events <- e
	}
	close(s.events)
	s.err = err
	close(s.done)
	return s
}

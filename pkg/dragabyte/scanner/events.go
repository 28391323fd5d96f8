package scanner

import (
	"sync"
	"sync/atomic"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
)

// Kind identifies a scan event.
type Kind int

// Event kinds.
const (
	KindProgress Kind = iota
	KindComplete
	KindError
	KindCancelled
)

// String returns the event name used on the wire and by local sinks.
func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "scan-progress"
	case KindComplete:
		return "scan-complete"
	case KindError:
		return "scan-error"
	case KindCancelled:
		return "scan-cancelled"
	default:
		return "scan-unknown"
	}
}

// Terminal reports whether no further events follow this kind.
func (k Kind) Terminal() bool {
	return k != KindProgress
}

// CancelledMessage is the message carried by KindCancelled events.
const CancelledMessage = "Scan cancelled"

// Event is one notification produced by a scan. Progress and Complete carry
// a Summary; Error and Cancelled carry a Message.
type Event struct {
	Kind    Kind
	Summary *types.ScanSummary
	Message string
}

// Emitter receives scan events. Emit is called from the scanning goroutine
// and must not block for long.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

// Emit calls f(e).
func (f EmitterFunc) Emit(e Event) {
	f(e)
}

// Recorder is an Emitter that stores every event. Useful in tests and for
// callers that only want the final summary.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends e.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Last returns the most recent event, if any.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Token is a cooperative cancellation flag shared between the scanning
// goroutine and whoever wants to stop it.
type Token struct {
	cancelled atomic.Bool
}

// NewToken returns a token in the running state.
func NewToken() *Token {
	return &Token{}
}

// Cancel requests cancellation. It is safe to call more than once.
func (t *Token) Cancel() {
	t.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	return t.cancelled.Load()
}

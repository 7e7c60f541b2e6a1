package engine

import "time"

// Level grades an event for caregiver routing.
type Level string

const (
	// LevelInfo covers normal operation: completions, pauses,
	// resumes.
	LevelInfo Level = "info"

	// LevelWarning covers refused attempts that keep the bed safe
	// but left the patient unrepositioned.
	LevelWarning Level = "warning"

	// LevelCritical covers aborts and emergency stops.
	LevelCritical Level = "critical"
)

// Event is one engine notification. Events mirror state transitions
// and attempt outcomes; callers needing history use the audit sink.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	State     State     `json:"state"`

	// RequiresManual marks events a caregiver must act on before the
	// bed resumes normal rotation.
	RequiresManual bool `json:"requires_manual"`
}

// Subscription is one listener's event feed.
type Subscription struct {
	ch chan Event
}

// Events returns the feed channel. It is closed by Unsubscribe and on
// engine shutdown.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Subscribe registers an event listener with the given channel
// buffer. A buffer of zero or below takes a small default. A listener
// that falls behind misses events rather than stalling the engine.
func (e *Engine) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &Subscription{ch: make(chan Event, buffer)}
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if e.subsClosed {
		close(sub.ch)
		return sub
	}
	e.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes the listener and closes its feed.
func (e *Engine) Unsubscribe(sub *Subscription) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if _, ok := e.subs[sub]; ok {
		delete(e.subs, sub)
		close(sub.ch)
	}
}

// publish fans the event out without blocking. Slow subscribers drop.
func (e *Engine) publish(ev Event) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for sub := range e.subs {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// closeSubscribers ends every feed on shutdown.
func (e *Engine) closeSubscribers() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subsClosed = true
	for sub := range e.subs {
		delete(e.subs, sub)
		close(sub.ch)
	}
}

func (e *Engine) event(level Level, message string, requiresManual bool) {
	ev := Event{
		Timestamp:      e.now(),
		Level:          level,
		Message:        message,
		State:          e.currentState(),
		RequiresManual: requiresManual,
	}
	e.publish(ev)
}

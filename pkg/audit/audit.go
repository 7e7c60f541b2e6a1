// Package audit defines the record emitted at the end of every
// repositioning attempt and the sink boundary that receives it.
//
// The control engine hands each record to its sink the moment the
// attempt ends and keeps only the most recent one for status
// reporting; retention is entirely the sink's concern.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/carebot-oss/carebot/pkg/bed"
)

// Outcome classifies how a repositioning attempt ended.
type Outcome string

const (
	// OutcomeCompleted means every step ran and the bed reached the
	// target posture.
	OutcomeCompleted Outcome = "completed"

	// OutcomeAborted means movement started but a safety verdict or a
	// drive fault stopped it partway.
	OutcomeAborted Outcome = "aborted"

	// OutcomeRejected means clearance failed before any actuator
	// moved.
	OutcomeRejected Outcome = "rejected"
)

// Record is one repositioning attempt.
type Record struct {
	ID             string       `json:"id"`
	Timestamp      time.Time    `json:"timestamp"`
	Position       bed.Position `json:"position"`
	Reason         string       `json:"reason"`
	Outcome        Outcome      `json:"outcome"`
	Detail         string       `json:"detail,omitempty"`
	StepsCompleted int          `json:"steps_completed"`
	StepsPlanned   int          `json:"steps_planned"`
	DurationMS     int64        `json:"duration_ms"`
}

// New starts a record for an attempt at pos triggered by reason.
func New(pos bed.Position, reason string, now time.Time) Record {
	return Record{
		ID:        uuid.NewString(),
		Timestamp: now,
		Position:  pos,
		Reason:    reason,
	}
}

// Sink receives finished records. Implementations must tolerate being
// called from the engine's worker goroutine; anything slow should
// buffer internally.
type Sink interface {
	Record(rec Record)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(rec Record)

// Record implements Sink.
func (f SinkFunc) Record(rec Record) { f(rec) }

// MultiSink fans each record out to every sink in order.
func MultiSink(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) Record(rec Record) {
	for _, s := range m {
		s.Record(rec)
	}
}

package engine

import (
	"time"

	"github.com/carebot-oss/carebot/pkg/audit"
	"github.com/carebot-oss/carebot/pkg/bed"
)

// State is the engine's externally visible mode. Exactly one state
// holds at a time; all transitions happen on the worker goroutine.
type State string

const (
	// StateIdle means no automatic schedule is armed. Manual requests
	// are accepted.
	StateIdle State = "idle"

	// StateScheduled means the engine is waiting for the next due
	// repositioning.
	StateScheduled State = "scheduled"

	// StateMoving means a repositioning is executing. New movement
	// and schedule commands are refused, never queued.
	StateMoving State = "moving"

	// StatePaused means automatic rotation is suspended. Manual
	// requests are still accepted.
	StatePaused State = "paused"

	// StateEmergencyStopped means the stop latch is set. Only
	// ManualResume leaves this state.
	StateEmergencyStopped State = "emergency_stopped"
)

// Movement reasons recorded in audit records and status.
const (
	ReasonScheduled = "scheduled"
	ReasonManual    = "manual"
	ReasonStartup   = "startup"
)

// Status is a point-in-time snapshot of the engine. Reading it never
// waits on the command queue or an in-progress movement.
type Status struct {
	State           State        `json:"state"`
	CurrentPosition bed.Position `json:"current_position"`
	Extents         bed.Vector   `json:"extents"`

	// Movement fields, meaningful while State is StateMoving.
	Target    bed.Position `json:"target,omitempty"`
	StepIndex int          `json:"step_index,omitempty"`
	StepCount int          `json:"step_count,omitempty"`
	Reason    string       `json:"reason,omitempty"`

	SchedulePaused  bool         `json:"schedule_paused"`
	PausedUntil     *time.Time   `json:"paused_until,omitempty"`
	NextDueAt       *time.Time   `json:"next_due_at,omitempty"`
	NextPosition    bed.Position `json:"next_position"`
	IntervalMinutes int          `json:"rotation_interval_minutes"`

	RotationsToday int        `json:"rotations_today"`
	TotalRotations int        `json:"total_rotations"`
	LastRotationAt *time.Time `json:"last_rotation_at,omitempty"`

	EmergencyLatched bool   `json:"emergency_latched"`
	LatchSource      string `json:"latch_source,omitempty"`

	LastRecord *audit.Record `json:"last_record,omitempty"`
}

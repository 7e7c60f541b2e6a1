package engine

import "errors"

var (
	// ErrBusy is returned for requests that cannot run while a
	// repositioning is in progress. Requests are never queued behind
	// a movement.
	ErrBusy = errors.New("repositioning in progress")

	// ErrRejected is returned when safety clearance refuses a
	// rotation request. The wrapped detail carries the verdict.
	ErrRejected = errors.New("rotation rejected")

	// ErrEmergencyStopped is returned for schedule commands received
	// while the emergency stop latch is set.
	ErrEmergencyStopped = errors.New("emergency stop active")

	// ErrNotStopped is returned by ManualResume when the engine is
	// not in the emergency stopped state.
	ErrNotStopped = errors.New("not emergency stopped")

	// ErrStillUnsafe is returned by ManualResume when the stop latch
	// cannot be released.
	ErrStillUnsafe = errors.New("resume refused")

	// ErrStopped is returned once the engine has shut down.
	ErrStopped = errors.New("engine stopped")
)

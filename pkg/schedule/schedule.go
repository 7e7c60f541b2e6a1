// Package schedule decides when the next automatic repositioning is
// due and which posture the rotation cycle visits next.
package schedule

import (
	"time"

	"github.com/carebot-oss/carebot/pkg/bed"
)

// DefaultInterval is the time between automatic repositionings.
// Pressure care guidance asks for at most two hours between turns;
// the default leaves a margin below that.
const DefaultInterval = 90 * time.Minute

// Rotation tracks the repositioning timer and the position cycle.
//
// A Rotation is not safe for concurrent use. The control engine owns
// it and serializes all access through its worker goroutine; callers
// read timing through the engine's status snapshot instead.
type Rotation struct {
	interval time.Duration
	due      time.Time
	paused   bool
	cycle    [4]bed.Position
	idx      int
}

// New returns a Rotation whose first repositioning is due one full
// interval after now. An interval of zero or below disables automatic
// rotation: Due never fires and manual requests drive all movement.
func New(interval time.Duration, now time.Time) *Rotation {
	r := &Rotation{
		interval: interval,
		cycle:    bed.Cycle(),
	}
	if r.Enabled() {
		r.due = now.Add(interval)
	}
	return r
}

// Enabled reports whether automatic rotation is armed at all.
func (r *Rotation) Enabled() bool { return r.interval > 0 }

// Interval returns the configured repositioning interval.
func (r *Rotation) Interval() time.Duration { return r.interval }

// Due reports whether an automatic repositioning should start. Always
// false while paused or disabled.
func (r *Rotation) Due(now time.Time) bool {
	if !r.Enabled() || r.paused {
		return false
	}
	return !now.Before(r.due)
}

// MarkStarted restarts the countdown from now. It is called whenever
// a movement starts, manual or scheduled: the requirement is time
// since the last repositioning, not which source triggered it. It is
// also called for a refused scheduled attempt, so a bed that cannot
// move waits a full interval before the next automatic try.
func (r *Rotation) MarkStarted(now time.Time) {
	if r.Enabled() {
		r.due = now.Add(r.interval)
	}
}

// NextPosition returns the posture the next scheduled rotation will
// target.
func (r *Rotation) NextPosition() bed.Position {
	return r.cycle[(r.idx+1)%len(r.cycle)]
}

// Advance moves the cycle forward one slot. The engine calls it when
// a scheduled rotation actually starts moving; manual rotations and
// refused attempts leave the cycle where it is.
func (r *Rotation) Advance() {
	r.idx = (r.idx + 1) % len(r.cycle)
}

// Pause suspends automatic rotation. Manual requests stay available.
func (r *Rotation) Pause() { r.paused = true }

// Resume re-arms the timer a full interval from now. Repositionings
// missed while paused are not caught up.
func (r *Rotation) Resume(now time.Time) {
	r.paused = false
	if r.Enabled() {
		r.due = now.Add(r.interval)
	}
}

// Paused reports whether automatic rotation is suspended.
func (r *Rotation) Paused() bool { return r.paused }

// NextDue returns when the next automatic repositioning fires, or the
// zero time while paused or disabled.
func (r *Rotation) NextDue() time.Time {
	if !r.Enabled() || r.paused {
		return time.Time{}
	}
	return r.due
}

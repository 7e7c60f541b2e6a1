// Package motion plans stepwise transitions between bed postures.
//
// A plan is computed once, up front, from the believed extents at
// plan time. Executing a precomputed plan means an abort leaves the
// bed at a known intermediate vector, from which the next plan simply
// starts.
package motion

import (
	"errors"
	"fmt"

	"github.com/carebot-oss/carebot/pkg/bed"
)

// DefaultSteps is the standard number of interpolation steps for a
// full repositioning.
const DefaultSteps = 30

var (
	// ErrInvalidTarget is returned for postures outside the
	// calibration table.
	ErrInvalidTarget = errors.New("invalid target position")

	// ErrInvalidStepCount is returned when the requested step count
	// is below one.
	ErrInvalidStepCount = errors.New("invalid step count")
)

// Plan is an immutable stepwise trajectory toward a posture's
// calibrated target. Step(0) is the start vector; Step(Steps()) is
// exactly the target vector.
type Plan struct {
	target bed.Position
	steps  []bed.Vector
}

// Steps returns the number of increments in the plan.
func (p *Plan) Steps() int { return len(p.steps) - 1 }

// Step returns the extents after i increments. It panics when i is
// outside [0, Steps()].
func (p *Plan) Step(i int) bed.Vector { return p.steps[i] }

// Target returns the posture the plan ends in.
func (p *Plan) Target() bed.Position { return p.target }

// Final returns the exact calibrated target vector.
func (p *Plan) Final() bed.Vector { return p.steps[len(p.steps)-1] }

// Planner builds plans against a fixed calibration.
type Planner struct {
	cal *bed.Calibration
}

// NewPlanner returns a Planner using cal for posture targets.
func NewPlanner(cal *bed.Calibration) *Planner {
	return &Planner{cal: cal}
}

// Plan interpolates linearly from current to the calibrated target of
// pos in n equal steps. All four actuators advance in lockstep, each
// covering the same fraction of its own distance per step, so the
// surface tilts smoothly instead of twisting.
//
// The final step is pinned to the exact calibrated vector rather than
// the accumulated interpolation, so a completed plan always lands on
// the canonical posture regardless of floating point rounding.
func (pl *Planner) Plan(current bed.Vector, pos bed.Position, n int) (*Plan, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStepCount, n)
	}
	target, err := pl.cal.Vector(pos)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	steps := make([]bed.Vector, n+1)
	steps[0] = current
	for i := 1; i < n; i++ {
		frac := float64(i) / float64(n)
		var v bed.Vector
		for j := range v {
			v[j] = current[j] + (target[j]-current[j])*frac
		}
		steps[i] = v
	}
	steps[n] = target

	return &Plan{target: pos, steps: steps}, nil
}

// Package bed defines the physical vocabulary of the positioning bed:
// named patient postures, the linear actuator layout, and per-position
// calibration targets expressed as normalized actuator extents.
package bed

// Position identifies a named patient posture.
type Position string

const (
	// Supine is the flat resting posture with all actuators retracted.
	// It is the home position and the safe intermediate between laterals.
	Supine Position = "supine"

	// LeftLateral is the left-side tilt posture.
	LeftLateral Position = "left_lateral"

	// RightLateral is the right-side tilt posture.
	RightLateral Position = "right_lateral"
)

// TiltDegrees is the nominal lateral tilt, in degrees, of a fully
// applied lateral posture.
const TiltDegrees = 30

// Cycle returns the repositioning sequence in rotation order. The bed
// always returns to Supine between laterals so the patient is never
// rolled directly from one side to the other.
func Cycle() [4]Position {
	return [4]Position{Supine, LeftLateral, Supine, RightLateral}
}

// Valid reports whether p is one of the named postures.
func (p Position) Valid() bool {
	switch p {
	case Supine, LeftLateral, RightLateral:
		return true
	}
	return false
}

// Positions returns all named postures.
func Positions() []Position {
	return []Position{Supine, LeftLateral, RightLateral}
}

// ParsePosition converts a wire name into a Position.
func ParsePosition(s string) (Position, error) {
	p := Position(s)
	if !p.Valid() {
		return "", errUnknown(ErrUnknownPosition, s)
	}
	return p, nil
}

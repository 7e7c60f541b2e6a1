package bed

import (
	"encoding/json"
	"fmt"
	"os"
)

// Calibration maps each named posture to the actuator extents that
// realize it on a particular bed frame. A Calibration is read-only
// after construction and safe for concurrent use.
type Calibration struct {
	targets map[Position]Vector
}

// DefaultCalibration returns the factory calibration. Lateral postures
// extend the same-side actuators to 60% and the opposite side to 10%,
// which yields the nominal 30 degree tilt on the reference frame.
func DefaultCalibration() *Calibration {
	return &Calibration{
		targets: map[Position]Vector{
			Supine:       {0, 0, 0, 0},
			LeftLateral:  {0.60, 0.10, 0.60, 0.10},
			RightLateral: {0.10, 0.60, 0.10, 0.60},
		},
	}
}

// Vector returns the calibrated extents for pos.
func (c *Calibration) Vector(pos Position) (Vector, error) {
	v, ok := c.targets[pos]
	if !ok {
		return Vector{}, errUnknown(ErrUnknownPosition, string(pos))
	}
	return v, nil
}

// Targets returns a copy of the full posture table, keyed by wire name.
func (c *Calibration) Targets() map[string]Vector {
	out := make(map[string]Vector, len(c.targets))
	for pos, v := range c.targets {
		out[string(pos)] = v
	}
	return out
}

// LoadCalibration reads a JSON calibration file and overlays it on the
// factory defaults. The file maps posture names to actuator names to
// normalized extents:
//
//	{"left_lateral": {"head_left": 0.55, "head_right": 0.12}}
//
// Postures and actuators absent from the file keep their defaults.
// Unknown names and extents outside [0, 1] fail the load.
func LoadCalibration(path string) (*Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration: %w", err)
	}

	var raw map[string]map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCalibration, err)
	}

	cal := DefaultCalibration()
	for posName, extents := range raw {
		pos, err := ParsePosition(posName)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCalibration, err)
		}
		v := cal.targets[pos]
		for actName, x := range extents {
			id, err := ParseActuator(actName)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidCalibration, err)
			}
			if x < 0 || x > 1 {
				return nil, fmt.Errorf("%w: %s.%s=%v outside [0,1]",
					ErrInvalidCalibration, posName, actName, x)
			}
			v[id] = x
		}
		cal.targets[pos] = v
	}
	return cal, nil
}

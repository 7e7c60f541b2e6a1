package bed

import "fmt"

// ActuatorID indexes one of the bed's linear actuators. The ordinal
// doubles as the driver channel number.
type ActuatorID int

const (
	HeadLeft ActuatorID = iota
	HeadRight
	FootLeft
	FootRight
)

// NumActuators is the number of installed linear actuators.
const NumActuators = 4

// PressureChannels is the number of pressure pads in the mattress grid.
const PressureChannels = 4

var actuatorNames = [NumActuators]string{"head_left", "head_right", "foot_left", "foot_right"}

// String returns the wire name of the actuator.
func (a ActuatorID) String() string {
	if !a.Valid() {
		return fmt.Sprintf("actuator(%d)", int(a))
	}
	return actuatorNames[a]
}

// Valid reports whether a names an installed actuator.
func (a ActuatorID) Valid() bool {
	return a >= 0 && int(a) < NumActuators
}

// Actuators returns all installed actuator IDs in channel order.
func Actuators() [NumActuators]ActuatorID {
	return [NumActuators]ActuatorID{HeadLeft, HeadRight, FootLeft, FootRight}
}

// ParseActuator converts a wire name into an ActuatorID.
func ParseActuator(s string) (ActuatorID, error) {
	for i, name := range actuatorNames {
		if name == s {
			return ActuatorID(i), nil
		}
	}
	return 0, errUnknown(ErrUnknownActuator, s)
}

package bed

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPosition is returned when a position name is not part
	// of the bed's vocabulary.
	ErrUnknownPosition = errors.New("unknown position")

	// ErrUnknownActuator is returned when an actuator name does not map
	// to an installed channel.
	ErrUnknownActuator = errors.New("unknown actuator")

	// ErrInvalidCalibration is returned when a calibration file fails
	// validation.
	ErrInvalidCalibration = errors.New("invalid calibration")
)

func errUnknown(sentinel error, name string) error {
	return fmt.Errorf("%w: %q", sentinel, name)
}

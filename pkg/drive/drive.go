// Package drive provides interfaces and implementations for the bed's
// drive electronics: the linear actuator channels, the sensor bank,
// and the bedside status indicator.
//
// The package defines small, focused interfaces that can be composed
// as needed. Consumers should depend only on the capabilities they
// actually use; the safety monitor, for example, sees only Sensors.
package drive

import "github.com/carebot-oss/carebot/pkg/bed"

// Actuators controls the four linear actuator channels. Direction and
// speed are set independently, matching the H-bridge driver: a channel
// runs in its last commanded direction at its last commanded duty
// until stopped.
type Actuators interface {
	// Extend runs the actuator toward full extension.
	Extend(id bed.ActuatorID) error

	// Retract runs the actuator toward full retraction.
	Retract(id bed.ActuatorID) error

	// Stop halts the actuator and holds its current extent.
	Stop(id bed.ActuatorID) error

	// StopAll halts every channel. Used on completion and on abort.
	StopAll() error

	// SetDuty sets the PWM duty for the channel, in percent [0, 100].
	SetDuty(id bed.ActuatorID, percent float64) error
}

// Sensors reads the bed's sensor bank.
type Sensors interface {
	// ReadPressures returns the mattress pressure pads, in raw ADC
	// counts, indexed by pad channel.
	ReadPressures() ([bed.PressureChannels]float64, error)

	// ReadCurrents returns per-actuator motor current in milliamps.
	ReadCurrents() ([bed.NumActuators]float64, error)

	// InterlockEngaged reports the state of the physical emergency
	// stop circuit. True means the stop is asserted.
	InterlockEngaged() (bool, error)
}

// IndicatorMode selects what the bedside indicator shows.
type IndicatorMode string

const (
	// IndicatorNormal means idle or scheduled: steady green.
	IndicatorNormal IndicatorMode = "normal"

	// IndicatorMoving means a repositioning is in progress: yellow.
	IndicatorMoving IndicatorMode = "moving"

	// IndicatorFault means stopped on a safety condition: red.
	IndicatorFault IndicatorMode = "fault"
)

// StatusIndicator drives the bedside light so caregivers can read the
// bed's state at a glance.
type StatusIndicator interface {
	SetMode(mode IndicatorMode) error
}

// Rig is the composite interface for a fully equipped bed.
type Rig interface {
	Actuators
	Sensors
	StatusIndicator

	// Close releases the underlying hardware.
	Close() error
}

// Ensure SimRig implements Rig.
var _ Rig = (*SimRig)(nil)

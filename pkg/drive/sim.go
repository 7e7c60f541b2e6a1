package drive

import (
	"fmt"
	"sync"

	"github.com/carebot-oss/carebot/pkg/bed"
)

// Channel directions as reported by SimRig accessors.
const (
	DirExtend  = "extend"
	DirRetract = "retract"
	DirStopped = "stopped"
)

type simChannel struct {
	direction string
	duty      float64
}

// SimRig is an in-memory Rig for development and tests. It journals
// every drive command and lets callers script sensor readings and
// inject faults.
type SimRig struct {
	mu        sync.Mutex
	channels  [bed.NumActuators]simChannel
	pressures [bed.PressureChannels]float64
	currents  [bed.NumActuators]float64
	interlock bool
	mode      IndicatorMode
	journal   []string
	driveErr  error
	sensorErr error
}

// NewSimRig returns a SimRig with all channels stopped, all sensors
// reading zero, and the interlock released.
func NewSimRig() *SimRig {
	rig := &SimRig{mode: IndicatorNormal}
	for i := range rig.channels {
		rig.channels[i].direction = DirStopped
	}
	return rig
}

func (r *SimRig) command(id bed.ActuatorID, verb string, apply func(c *simChannel)) error {
	if !id.Valid() {
		return fmt.Errorf("%s: unknown actuator %d", verb, int(id))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.driveErr != nil {
		return r.driveErr
	}
	apply(&r.channels[id])
	r.journal = append(r.journal, fmt.Sprintf("%s %s", verb, id))
	return nil
}

// Extend implements Actuators.
func (r *SimRig) Extend(id bed.ActuatorID) error {
	return r.command(id, "extend", func(c *simChannel) { c.direction = DirExtend })
}

// Retract implements Actuators.
func (r *SimRig) Retract(id bed.ActuatorID) error {
	return r.command(id, "retract", func(c *simChannel) { c.direction = DirRetract })
}

// Stop implements Actuators.
func (r *SimRig) Stop(id bed.ActuatorID) error {
	return r.command(id, "stop", func(c *simChannel) {
		c.direction = DirStopped
		c.duty = 0
	})
}

// StopAll implements Actuators.
func (r *SimRig) StopAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.driveErr != nil {
		return r.driveErr
	}
	for i := range r.channels {
		r.channels[i].direction = DirStopped
		r.channels[i].duty = 0
	}
	r.journal = append(r.journal, "stop_all")
	return nil
}

// SetDuty implements Actuators.
func (r *SimRig) SetDuty(id bed.ActuatorID, percent float64) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("duty %.1f outside [0,100]", percent)
	}
	return r.command(id, fmt.Sprintf("duty=%.0f", percent), func(c *simChannel) {
		c.duty = percent
	})
}

// ReadPressures implements Sensors.
func (r *SimRig) ReadPressures() ([bed.PressureChannels]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sensorErr != nil {
		return [bed.PressureChannels]float64{}, r.sensorErr
	}
	return r.pressures, nil
}

// ReadCurrents implements Sensors.
func (r *SimRig) ReadCurrents() ([bed.NumActuators]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sensorErr != nil {
		return [bed.NumActuators]float64{}, r.sensorErr
	}
	return r.currents, nil
}

// InterlockEngaged implements Sensors.
func (r *SimRig) InterlockEngaged() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sensorErr != nil {
		return false, r.sensorErr
	}
	return r.interlock, nil
}

// SetMode implements StatusIndicator.
func (r *SimRig) SetMode(mode IndicatorMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = mode
	r.journal = append(r.journal, fmt.Sprintf("indicator %s", mode))
	return nil
}

// Close implements Rig.
func (r *SimRig) Close() error { return nil }

// SetPressures scripts the mattress pad readings.
func (r *SimRig) SetPressures(p [bed.PressureChannels]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pressures = p
}

// SetCurrent scripts one actuator's current reading, in milliamps.
func (r *SimRig) SetCurrent(id bed.ActuatorID, ma float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id.Valid() {
		r.currents[id] = ma
	}
}

// SetInterlock scripts the physical emergency stop circuit.
func (r *SimRig) SetInterlock(engaged bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interlock = engaged
}

// FailDrives makes every subsequent actuator command return err.
// Pass nil to clear.
func (r *SimRig) FailDrives(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.driveErr = err
}

// FailSensors makes every subsequent sensor read return err.
// Pass nil to clear.
func (r *SimRig) FailSensors(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sensorErr = err
}

// Direction returns the channel's commanded direction.
func (r *SimRig) Direction(id bed.ActuatorID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !id.Valid() {
		return ""
	}
	return r.channels[id].direction
}

// Duty returns the channel's commanded PWM duty in percent.
func (r *SimRig) Duty(id bed.ActuatorID) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !id.Valid() {
		return 0
	}
	return r.channels[id].duty
}

// Mode returns the indicator mode.
func (r *SimRig) Mode() IndicatorMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// Journal returns a copy of the commands received so far, in order.
func (r *SimRig) Journal() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.journal))
	copy(out, r.journal)
	return out
}

// Package safety evaluates whether the bed may move. It owns the
// emergency stop latch, the actuator overload check, and the patient
// presence check, and reduces them to a single verdict the control
// engine consults before and during every movement.
package safety

import "fmt"

// Phase tells the monitor where the engine is in a movement, which
// determines the set of applicable checks.
type Phase int

const (
	// PhaseStart is evaluated once before a movement begins. All
	// checks apply, including patient presence.
	PhaseStart Phase = iota

	// PhaseInFlight is evaluated between interpolation steps. The
	// presence check is skipped: the patient's weight shifts across
	// the pads while the surface moves, and a transient low reading
	// must not abort a repositioning halfway.
	PhaseInFlight
)

// Code classifies a verdict.
type Code string

const (
	// CodeClear means every applicable check passed.
	CodeClear Code = "clear"

	// CodeEmergencyStopped means the stop latch is set. It stays set
	// until an operator resumes, regardless of the live circuit.
	CodeEmergencyStopped Code = "emergency_stopped"

	// CodeOverload means an actuator drew more current than the
	// configured limit, indicating a jam or an obstruction.
	CodeOverload Code = "overload"

	// CodeNoPatient means the mattress pads read below the presence
	// threshold. Repositioning an empty bed is refused.
	CodeNoPatient Code = "no_patient_detected"

	// CodeHardwareFault means a sensor could not be read. Movement is
	// refused when safety cannot be verified.
	CodeHardwareFault Code = "hardware_fault"
)

// Verdict is the outcome of one safety evaluation.
type Verdict struct {
	// Code classifies the verdict.
	Code Code

	// Channel names the tripping source when one applies: the latch
	// source for an emergency stop, the actuator for an overload, the
	// failing sensor for a hardware fault.
	Channel string

	// Err carries the underlying read error for hardware faults.
	Err error
}

// Clear reports whether the verdict permits movement.
func (v Verdict) Clear() bool { return v.Code == CodeClear }

// String renders the verdict for logs and audit detail.
func (v Verdict) String() string {
	switch {
	case v.Code == CodeClear:
		return string(CodeClear)
	case v.Err != nil:
		return fmt.Sprintf("%s (%s: %v)", v.Code, v.Channel, v.Err)
	case v.Channel != "":
		return fmt.Sprintf("%s (%s)", v.Code, v.Channel)
	default:
		return string(v.Code)
	}
}

func clear() Verdict { return Verdict{Code: CodeClear} }

package safety

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/carebot-oss/carebot/pkg/bed"
	"github.com/carebot-oss/carebot/pkg/drive"
)

// Default thresholds, tuned for the reference sensor bank.
const (
	DefaultOverloadMA      = 5000
	DefaultPresenceMin     = 500
	DefaultReleaseDebounce = 300 * time.Millisecond
)

// ErrInterlockEngaged is returned by Resume while the physical stop
// circuit is still asserted.
var ErrInterlockEngaged = errors.New("interlock still engaged")

// Config carries the monitor thresholds. Zero fields take defaults.
type Config struct {
	// OverloadThresholdMA is the per-actuator current limit in
	// milliamps.
	OverloadThresholdMA float64

	// PresenceThreshold is the minimum summed pressure reading, in
	// raw ADC counts, that counts as an occupied bed.
	PresenceThreshold float64

	// ReleaseDebounce is how long the stop circuit must read clear
	// before Resume will release the latch.
	ReleaseDebounce time.Duration
}

// Monitor evaluates the bed's safety state. The stop latch asserts the
// instant any trigger is observed and releases only through Resume.
type Monitor struct {
	sensors drive.Sensors
	log     *zap.Logger

	overloadMA  float64
	presenceMin float64
	debounce    time.Duration

	latched atomic.Bool
	mu      sync.Mutex
	source  string

	sleep func(time.Duration)
}

// NewMonitor returns a Monitor reading from sensors. The latch starts
// released.
func NewMonitor(sensors drive.Sensors, cfg Config, log *zap.Logger) *Monitor {
	if cfg.OverloadThresholdMA <= 0 {
		cfg.OverloadThresholdMA = DefaultOverloadMA
	}
	if cfg.PresenceThreshold <= 0 {
		cfg.PresenceThreshold = DefaultPresenceMin
	}
	if cfg.ReleaseDebounce <= 0 {
		cfg.ReleaseDebounce = DefaultReleaseDebounce
	}
	return &Monitor{
		sensors:     sensors,
		log:         log,
		overloadMA:  cfg.OverloadThresholdMA,
		presenceMin: cfg.PresenceThreshold,
		debounce:    cfg.ReleaseDebounce,
		sleep:       time.Sleep,
	}
}

// Check evaluates every check applicable to the phase and returns the
// highest priority failure, or a clear verdict. The emergency stop
// outranks overload, which outranks presence.
func (m *Monitor) Check(phase Phase) Verdict {
	if m.latched.Load() {
		return Verdict{Code: CodeEmergencyStopped, Channel: m.latchSource()}
	}

	engaged, err := m.sensors.InterlockEngaged()
	if err != nil {
		return Verdict{Code: CodeHardwareFault, Channel: "interlock", Err: err}
	}
	if engaged {
		m.latch("interlock")
		return Verdict{Code: CodeEmergencyStopped, Channel: "interlock"}
	}

	currents, err := m.sensors.ReadCurrents()
	if err != nil {
		return Verdict{Code: CodeHardwareFault, Channel: "current", Err: err}
	}
	worst, worstMA := bed.ActuatorID(-1), m.overloadMA
	for _, id := range bed.Actuators() {
		if currents[id] > worstMA {
			worst, worstMA = id, currents[id]
		}
	}
	if worst.Valid() {
		return Verdict{
			Code:    CodeOverload,
			Channel: fmt.Sprintf("%s: %.0fmA", worst, worstMA),
		}
	}

	if phase == PhaseStart {
		pressures, err := m.sensors.ReadPressures()
		if err != nil {
			return Verdict{Code: CodeHardwareFault, Channel: "pressure", Err: err}
		}
		var sum float64
		for _, p := range pressures {
			sum += p
		}
		if sum < m.presenceMin {
			return Verdict{Code: CodeNoPatient, Channel: fmt.Sprintf("sum %.0f", sum)}
		}
	}

	return clear()
}

// TriggerStop sets the stop latch immediately. The source is recorded
// for audit and status. Triggering an already latched monitor keeps
// the original source. Safe to call from any goroutine; it never
// waits on the engine.
func (m *Monitor) TriggerStop(source string) {
	m.latch(source)
}

// Resume releases the stop latch after verifying the physical circuit
// has read clear across the debounce window. It fails with
// ErrInterlockEngaged while the circuit is asserted and with the read
// error when the circuit cannot be verified.
func (m *Monitor) Resume() error {
	if err := m.interlockClear(); err != nil {
		return err
	}
	m.sleep(m.debounce)
	if err := m.interlockClear(); err != nil {
		return err
	}

	m.mu.Lock()
	m.source = ""
	m.mu.Unlock()
	m.latched.Store(false)
	m.log.Info("emergency stop released")
	return nil
}

// Latched reports whether the stop latch is set.
func (m *Monitor) Latched() bool { return m.latched.Load() }

// LatchSource returns what set the latch, or empty when released.
func (m *Monitor) LatchSource() string { return m.latchSource() }

func (m *Monitor) interlockClear() error {
	engaged, err := m.sensors.InterlockEngaged()
	if err != nil {
		return fmt.Errorf("verify interlock: %w", err)
	}
	if engaged {
		return ErrInterlockEngaged
	}
	return nil
}

func (m *Monitor) latch(source string) {
	m.mu.Lock()
	if m.latched.Load() {
		m.mu.Unlock()
		return
	}
	m.source = source
	m.latched.Store(true)
	m.mu.Unlock()
	m.log.Warn("emergency stop latched", zap.String("source", source))
}

func (m *Monitor) latchSource() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.source
}

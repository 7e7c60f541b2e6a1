package safety

import (
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/carebot-oss/carebot/pkg/bed"
	"github.com/carebot-oss/carebot/pkg/drive"
)

func newTestMonitor(t *testing.T, cfg Config) (*Monitor, *drive.SimRig) {
	t.Helper()
	rig := drive.NewSimRig()
	rig.SetPressures([bed.PressureChannels]float64{200, 200, 100, 100})
	m := NewMonitor(rig, cfg, zap.NewNop())
	m.sleep = func(time.Duration) {}
	return m, rig
}

func TestCheckClear(t *testing.T) {
	m, _ := newTestMonitor(t, Config{})
	for _, phase := range []Phase{PhaseStart, PhaseInFlight} {
		if v := m.Check(phase); !v.Clear() {
			t.Errorf("Check(%v) = %v, want clear", phase, v)
		}
	}
}

func TestPresenceOnlyAtStart(t *testing.T) {
	m, rig := newTestMonitor(t, Config{})
	rig.SetPressures([bed.PressureChannels]float64{})

	if v := m.Check(PhaseStart); v.Code != CodeNoPatient {
		t.Errorf("empty bed at start: %v, want %s", v, CodeNoPatient)
	}
	if v := m.Check(PhaseInFlight); !v.Clear() {
		t.Errorf("empty pads in flight: %v, want clear", v)
	}
}

func TestPresenceThresholdBoundary(t *testing.T) {
	m, rig := newTestMonitor(t, Config{PresenceThreshold: 500})

	rig.SetPressures([bed.PressureChannels]float64{125, 125, 125, 125})
	if v := m.Check(PhaseStart); !v.Clear() {
		t.Errorf("sum exactly at threshold: %v, want clear", v)
	}
	rig.SetPressures([bed.PressureChannels]float64{125, 125, 125, 124})
	if v := m.Check(PhaseStart); v.Code != CodeNoPatient {
		t.Errorf("sum below threshold: %v, want %s", v, CodeNoPatient)
	}
}

func TestOverloadPicksWorstChannel(t *testing.T) {
	m, rig := newTestMonitor(t, Config{})
	rig.SetCurrent(bed.HeadRight, 5200)
	rig.SetCurrent(bed.FootLeft, 6100)

	v := m.Check(PhaseInFlight)
	if v.Code != CodeOverload {
		t.Fatalf("Check = %v, want %s", v, CodeOverload)
	}
	if !strings.Contains(v.Channel, "foot_left") {
		t.Errorf("channel = %q, want the worst offender foot_left", v.Channel)
	}
}

func TestOverloadDefaultThreshold(t *testing.T) {
	m, rig := newTestMonitor(t, Config{})

	rig.SetCurrent(bed.HeadLeft, DefaultOverloadMA)
	if v := m.Check(PhaseInFlight); !v.Clear() {
		t.Errorf("current at threshold: %v, want clear", v)
	}
	rig.SetCurrent(bed.HeadLeft, DefaultOverloadMA+1)
	if v := m.Check(PhaseInFlight); v.Code != CodeOverload {
		t.Errorf("current above threshold: %v, want %s", v, CodeOverload)
	}
}

func TestInterlockLatchIsSticky(t *testing.T) {
	m, rig := newTestMonitor(t, Config{})

	rig.SetInterlock(true)
	if v := m.Check(PhaseInFlight); v.Code != CodeEmergencyStopped {
		t.Fatalf("engaged interlock: %v, want %s", v, CodeEmergencyStopped)
	}

	// Releasing the button does not release the latch.
	rig.SetInterlock(false)
	v := m.Check(PhaseInFlight)
	if v.Code != CodeEmergencyStopped {
		t.Errorf("after release: %v, want latched %s", v, CodeEmergencyStopped)
	}
	if v.Channel != "interlock" {
		t.Errorf("latch source = %q, want interlock", v.Channel)
	}
	if !m.Latched() {
		t.Error("Latched() = false after interlock trip")
	}
}

func TestTriggerStopKeepsFirstSource(t *testing.T) {
	m, _ := newTestMonitor(t, Config{})

	m.TriggerStop("operator")
	m.TriggerStop("watchdog")

	if src := m.LatchSource(); src != "operator" {
		t.Errorf("LatchSource = %q, want operator", src)
	}
	if v := m.Check(PhaseStart); v.Code != CodeEmergencyStopped || v.Channel != "operator" {
		t.Errorf("Check = %v, want emergency_stopped (operator)", v)
	}
}

func TestLatchOutranksOverload(t *testing.T) {
	m, rig := newTestMonitor(t, Config{})
	rig.SetCurrent(bed.FootRight, 9000)
	m.TriggerStop("operator")

	if v := m.Check(PhaseInFlight); v.Code != CodeEmergencyStopped {
		t.Errorf("Check = %v, want %s to outrank overload", v, CodeEmergencyStopped)
	}
}

func TestHardwareFaultWhenSensorsUnreadable(t *testing.T) {
	m, rig := newTestMonitor(t, Config{})
	readErr := errors.New("adc timeout")
	rig.FailSensors(readErr)

	v := m.Check(PhaseStart)
	if v.Code != CodeHardwareFault {
		t.Fatalf("Check = %v, want %s", v, CodeHardwareFault)
	}
	if !errors.Is(v.Err, readErr) {
		t.Errorf("verdict err = %v, want wrapped read error", v.Err)
	}
}

func TestResumeReleasesAfterStableClear(t *testing.T) {
	m, rig := newTestMonitor(t, Config{ReleaseDebounce: 250 * time.Millisecond})
	var slept time.Duration
	m.sleep = func(d time.Duration) { slept = d }

	rig.SetInterlock(true)
	m.Check(PhaseStart)
	rig.SetInterlock(false)

	if err := m.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if slept != 250*time.Millisecond {
		t.Errorf("debounce wait = %v, want 250ms", slept)
	}
	if m.Latched() {
		t.Error("latch still set after Resume")
	}
	if v := m.Check(PhaseStart); !v.Clear() {
		t.Errorf("Check after Resume = %v, want clear", v)
	}
}

func TestResumeRefusesWhileEngaged(t *testing.T) {
	m, rig := newTestMonitor(t, Config{})
	rig.SetInterlock(true)
	m.Check(PhaseStart)

	if err := m.Resume(); !errors.Is(err, ErrInterlockEngaged) {
		t.Errorf("Resume error = %v, want ErrInterlockEngaged", err)
	}
	if !m.Latched() {
		t.Error("failed Resume must leave the latch set")
	}
}

func TestResumeRefusesOnBounce(t *testing.T) {
	m, rig := newTestMonitor(t, Config{})
	m.TriggerStop("operator")

	// The circuit re-engages inside the debounce window.
	m.sleep = func(time.Duration) { rig.SetInterlock(true) }

	if err := m.Resume(); !errors.Is(err, ErrInterlockEngaged) {
		t.Errorf("Resume error = %v, want ErrInterlockEngaged", err)
	}
	if !m.Latched() {
		t.Error("bounced Resume must leave the latch set")
	}
}

func TestResumeRefusesWhenUnverifiable(t *testing.T) {
	m, rig := newTestMonitor(t, Config{})
	m.TriggerStop("operator")
	rig.FailSensors(errors.New("adc timeout"))

	if err := m.Resume(); err == nil {
		t.Error("Resume with unreadable interlock should fail")
	}
	if !m.Latched() {
		t.Error("unverifiable Resume must leave the latch set")
	}
}

func TestVerdictString(t *testing.T) {
	cases := []struct {
		v    Verdict
		want string
	}{
		{Verdict{Code: CodeClear}, "clear"},
		{Verdict{Code: CodeEmergencyStopped, Channel: "interlock"}, "emergency_stopped (interlock)"},
		{Verdict{Code: CodeOverload, Channel: "foot_left: 6100mA"}, "overload (foot_left: 6100mA)"},
		{Verdict{Code: CodeNoPatient}, "no_patient_detected"},
	}
	for _, tc := range cases {
		if got := tc.v.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

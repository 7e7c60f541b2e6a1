package drive

import (
	"errors"
	"testing"

	"github.com/carebot-oss/carebot/pkg/bed"
)

func TestSimRigCommandsAndJournal(t *testing.T) {
	rig := NewSimRig()

	if err := rig.Extend(bed.HeadLeft); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if err := rig.SetDuty(bed.HeadLeft, 45); err != nil {
		t.Fatalf("SetDuty: %v", err)
	}
	if err := rig.Retract(bed.FootRight); err != nil {
		t.Fatalf("Retract: %v", err)
	}

	if got := rig.Direction(bed.HeadLeft); got != DirExtend {
		t.Errorf("head_left direction = %q, want %q", got, DirExtend)
	}
	if got := rig.Duty(bed.HeadLeft); got != 45 {
		t.Errorf("head_left duty = %v, want 45", got)
	}
	if got := rig.Direction(bed.FootRight); got != DirRetract {
		t.Errorf("foot_right direction = %q, want %q", got, DirRetract)
	}

	want := []string{"extend head_left", "duty=45 head_left", "retract foot_right"}
	got := rig.Journal()
	if len(got) != len(want) {
		t.Fatalf("journal = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("journal[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSimRigStopAll(t *testing.T) {
	rig := NewSimRig()
	for _, id := range bed.Actuators() {
		if err := rig.Extend(id); err != nil {
			t.Fatalf("Extend(%s): %v", id, err)
		}
		if err := rig.SetDuty(id, 80); err != nil {
			t.Fatalf("SetDuty(%s): %v", id, err)
		}
	}

	if err := rig.StopAll(); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	for _, id := range bed.Actuators() {
		if rig.Direction(id) != DirStopped {
			t.Errorf("%s still %s after StopAll", id, rig.Direction(id))
		}
		if rig.Duty(id) != 0 {
			t.Errorf("%s duty %v after StopAll", id, rig.Duty(id))
		}
	}
}

func TestSimRigDutyRange(t *testing.T) {
	rig := NewSimRig()
	if err := rig.SetDuty(bed.HeadLeft, 101); err == nil {
		t.Error("SetDuty(101) should fail")
	}
	if err := rig.SetDuty(bed.HeadLeft, -1); err == nil {
		t.Error("SetDuty(-1) should fail")
	}
}

func TestSimRigFaultInjection(t *testing.T) {
	rig := NewSimRig()

	driveErr := errors.New("bridge offline")
	rig.FailDrives(driveErr)
	if err := rig.Extend(bed.HeadLeft); !errors.Is(err, driveErr) {
		t.Errorf("Extend error = %v, want injected", err)
	}
	rig.FailDrives(nil)
	if err := rig.Extend(bed.HeadLeft); err != nil {
		t.Errorf("Extend after clearing injection: %v", err)
	}

	sensorErr := errors.New("adc timeout")
	rig.FailSensors(sensorErr)
	if _, err := rig.ReadCurrents(); !errors.Is(err, sensorErr) {
		t.Errorf("ReadCurrents error = %v, want injected", err)
	}
	if _, err := rig.InterlockEngaged(); !errors.Is(err, sensorErr) {
		t.Errorf("InterlockEngaged error = %v, want injected", err)
	}
}

func TestSimRigScriptedSensors(t *testing.T) {
	rig := NewSimRig()
	rig.SetPressures([bed.PressureChannels]float64{100, 200, 150, 120})
	rig.SetCurrent(bed.FootLeft, 4200)
	rig.SetInterlock(true)

	pressures, err := rig.ReadPressures()
	if err != nil {
		t.Fatalf("ReadPressures: %v", err)
	}
	if pressures[1] != 200 {
		t.Errorf("pressures[1] = %v, want 200", pressures[1])
	}

	currents, err := rig.ReadCurrents()
	if err != nil {
		t.Fatalf("ReadCurrents: %v", err)
	}
	if currents[bed.FootLeft] != 4200 {
		t.Errorf("foot_left current = %v, want 4200", currents[bed.FootLeft])
	}

	engaged, err := rig.InterlockEngaged()
	if err != nil {
		t.Fatalf("InterlockEngaged: %v", err)
	}
	if !engaged {
		t.Error("interlock should read engaged")
	}
}

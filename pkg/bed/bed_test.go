package bed

import (
	"errors"
	"testing"
)

const floatTolerance = 1e-9

func TestCycleOrder(t *testing.T) {
	want := [4]Position{Supine, LeftLateral, Supine, RightLateral}
	if got := Cycle(); got != want {
		t.Errorf("Cycle() = %v, want %v", got, want)
	}
}

func TestCycleNeverAdjacentLaterals(t *testing.T) {
	cycle := Cycle()
	for i := range cycle {
		cur, next := cycle[i], cycle[(i+1)%len(cycle)]
		if cur != Supine && next != Supine {
			t.Errorf("cycle steps %d->%d go lateral to lateral: %s -> %s", i, i+1, cur, next)
		}
	}
}

func TestParsePosition(t *testing.T) {
	for _, pos := range Positions() {
		got, err := ParsePosition(string(pos))
		if err != nil {
			t.Fatalf("ParsePosition(%q) error: %v", pos, err)
		}
		if got != pos {
			t.Errorf("ParsePosition(%q) = %q", pos, got)
		}
	}

	if _, err := ParsePosition("prone"); !errors.Is(err, ErrUnknownPosition) {
		t.Errorf("ParsePosition(prone) error = %v, want ErrUnknownPosition", err)
	}
	if _, err := ParsePosition(""); !errors.Is(err, ErrUnknownPosition) {
		t.Errorf("ParsePosition(empty) error = %v, want ErrUnknownPosition", err)
	}
}

func TestActuatorNames(t *testing.T) {
	want := map[ActuatorID]string{
		HeadLeft:  "head_left",
		HeadRight: "head_right",
		FootLeft:  "foot_left",
		FootRight: "foot_right",
	}
	for id, name := range want {
		if id.String() != name {
			t.Errorf("%d.String() = %q, want %q", int(id), id.String(), name)
		}
		parsed, err := ParseActuator(name)
		if err != nil {
			t.Fatalf("ParseActuator(%q) error: %v", name, err)
		}
		if parsed != id {
			t.Errorf("ParseActuator(%q) = %v, want %v", name, parsed, id)
		}
	}

	if _, err := ParseActuator("torso_left"); !errors.Is(err, ErrUnknownActuator) {
		t.Errorf("ParseActuator(torso_left) error = %v, want ErrUnknownActuator", err)
	}
	if ActuatorID(7).Valid() {
		t.Error("ActuatorID(7).Valid() = true")
	}
}

func TestVectorClamped(t *testing.T) {
	v := Vector{-0.5, 0.25, 1.5, 1.0}
	want := Vector{0, 0.25, 1.0, 1.0}
	got := v.Clamped()
	if !got.ApproxEqual(want, floatTolerance) {
		t.Errorf("Clamped() = %v, want %v", got, want)
	}
}

func TestVectorApproxEqual(t *testing.T) {
	a := Vector{0.1, 0.2, 0.3, 0.4}
	b := Vector{0.1 + 1e-12, 0.2, 0.3, 0.4}
	if !a.ApproxEqual(b, floatTolerance) {
		t.Error("vectors differing by 1e-12 should be approx equal")
	}
	c := Vector{0.1, 0.2, 0.3, 0.5}
	if a.ApproxEqual(c, floatTolerance) {
		t.Error("vectors differing by 0.1 should not be approx equal")
	}
}

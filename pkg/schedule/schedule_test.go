package schedule

import (
	"testing"
	"time"

	"github.com/carebot-oss/carebot/pkg/bed"
)

var t0 = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func TestDueAfterFullInterval(t *testing.T) {
	r := New(90*time.Minute, t0)

	if r.Due(t0) {
		t.Error("due immediately after construction")
	}
	if r.Due(t0.Add(89 * time.Minute)) {
		t.Error("due one minute early")
	}
	if !r.Due(t0.Add(90 * time.Minute)) {
		t.Error("not due exactly at the interval")
	}
	if !r.Due(t0.Add(3 * time.Hour)) {
		t.Error("not due well past the interval")
	}
}

func TestMarkStartedRestartsCountdown(t *testing.T) {
	r := New(90*time.Minute, t0)

	// Rotation fires at t+90m; the next one is due at t+180m, keyed
	// to the start time rather than accumulating processing delay.
	started := t0.Add(90 * time.Minute)
	r.MarkStarted(started)

	if got, want := r.NextDue(), started.Add(90*time.Minute); !got.Equal(want) {
		t.Errorf("NextDue = %v, want %v", got, want)
	}
	if r.Due(started.Add(89 * time.Minute)) {
		t.Error("due before the restarted countdown expires")
	}
	if !r.Due(started.Add(90 * time.Minute)) {
		t.Error("not due after the restarted countdown")
	}
}

func TestPausedNeverDue(t *testing.T) {
	r := New(90*time.Minute, t0)
	r.Pause()

	if !r.Paused() {
		t.Fatal("Paused() = false after Pause")
	}
	if r.Due(t0.Add(24 * time.Hour)) {
		t.Error("due while paused")
	}
	if !r.NextDue().IsZero() {
		t.Errorf("NextDue while paused = %v, want zero", r.NextDue())
	}
}

func TestResumeDoesNotCatchUp(t *testing.T) {
	r := New(90*time.Minute, t0)
	r.Pause()

	// Two intervals elapse while paused; on resume the next rotation
	// is a full interval out, not immediate.
	resumed := t0.Add(3 * time.Hour)
	r.Resume(resumed)

	if r.Due(resumed) {
		t.Error("due immediately after resume")
	}
	if got, want := r.NextDue(), resumed.Add(90*time.Minute); !got.Equal(want) {
		t.Errorf("NextDue = %v, want %v", got, want)
	}
}

func TestCycleOrder(t *testing.T) {
	r := New(90*time.Minute, t0)

	want := []bed.Position{
		bed.LeftLateral, bed.Supine, bed.RightLateral, bed.Supine,
		bed.LeftLateral, bed.Supine,
	}
	for i, pos := range want {
		if got := r.NextPosition(); got != pos {
			t.Fatalf("step %d: NextPosition = %s, want %s", i, got, pos)
		}
		r.Advance()
	}
}

func TestNextPositionStableWithoutAdvance(t *testing.T) {
	r := New(90*time.Minute, t0)

	// Manual rotations never advance the cycle, so repeated reads
	// see the same next posture.
	first := r.NextPosition()
	for i := 0; i < 3; i++ {
		if got := r.NextPosition(); got != first {
			t.Fatalf("NextPosition changed without Advance: %s -> %s", first, got)
		}
	}
}

func TestDisabledScheduler(t *testing.T) {
	r := New(0, t0)

	if r.Enabled() {
		t.Fatal("interval 0 should disable the scheduler")
	}
	if r.Due(t0.Add(1000 * time.Hour)) {
		t.Error("disabled scheduler reported due")
	}
	if !r.NextDue().IsZero() {
		t.Errorf("NextDue = %v, want zero", r.NextDue())
	}
	r.MarkStarted(t0)
	if r.Due(t0.Add(1000 * time.Hour)) {
		t.Error("disabled scheduler due after MarkStarted")
	}
}

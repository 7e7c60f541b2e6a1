package audit

import (
	"fmt"
	"testing"
	"time"

	"github.com/carebot-oss/carebot/pkg/bed"
)

func TestNewRecord(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	rec := New(bed.LeftLateral, "scheduled", now)

	if rec.ID == "" {
		t.Error("record should carry an ID")
	}
	if !rec.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", rec.Timestamp, now)
	}
	if rec.Position != bed.LeftLateral || rec.Reason != "scheduled" {
		t.Errorf("record = %+v", rec)
	}

	other := New(bed.Supine, "manual", now)
	if other.ID == rec.ID {
		t.Error("records should get distinct IDs")
	}
}

func TestMemoryLogEvictsOldest(t *testing.T) {
	log := NewMemoryLog(3)
	now := time.Now()
	for i := 0; i < 5; i++ {
		rec := New(bed.Supine, fmt.Sprintf("attempt-%d", i), now)
		rec.Outcome = OutcomeCompleted
		log.Record(rec)
	}

	if log.Len() != 3 {
		t.Fatalf("Len = %d, want 3", log.Len())
	}
	recent := log.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("Recent(0) returned %d records, want 3", len(recent))
	}
	// Newest first, oldest two evicted.
	for i, want := range []string{"attempt-4", "attempt-3", "attempt-2"} {
		if recent[i].Reason != want {
			t.Errorf("recent[%d].Reason = %q, want %q", i, recent[i].Reason, want)
		}
	}
}

func TestMemoryLogRecentLimit(t *testing.T) {
	log := NewMemoryLog(10)
	now := time.Now()
	for i := 0; i < 4; i++ {
		log.Record(New(bed.Supine, fmt.Sprintf("attempt-%d", i), now))
	}

	recent := log.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Recent(2) returned %d records", len(recent))
	}
	if recent[0].Reason != "attempt-3" || recent[1].Reason != "attempt-2" {
		t.Errorf("Recent(2) = %q, %q", recent[0].Reason, recent[1].Reason)
	}

	if got := log.Recent(100); len(got) != 4 {
		t.Errorf("Recent(100) returned %d records, want all 4", len(got))
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := NewMemoryLog(10), NewMemoryLog(10)
	sink := MultiSink(a, b)

	sink.Record(New(bed.RightLateral, "manual", time.Now()))

	if a.Len() != 1 || b.Len() != 1 {
		t.Errorf("fan-out lengths = %d, %d, want 1, 1", a.Len(), b.Len())
	}
}

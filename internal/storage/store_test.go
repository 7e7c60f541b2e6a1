package storage_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carebot-oss/carebot/internal/storage"
	"github.com/carebot-oss/carebot/pkg/audit"
	"github.com/carebot-oss/carebot/pkg/bed"
)

func record(id string, pos bed.Position, outcome audit.Outcome, at time.Time) audit.Record {
	return audit.Record{
		ID:             id,
		Timestamp:      at,
		Position:       pos,
		Reason:         "scheduled",
		Outcome:        outcome,
		StepsCompleted: 30,
		StepsPlanned:   30,
		DurationMS:     9000,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	store, err := storage.Open(path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	store.Record(record("a", bed.LeftLateral, audit.OutcomeCompleted, base))
	store.Record(record("b", bed.Supine, audit.OutcomeCompleted, base.Add(90*time.Minute)))
	store.Record(record("c", bed.RightLateral, audit.OutcomeAborted, base.Add(3*time.Hour)))

	count, err := store.Count()
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	recent, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "c", recent[0].ID)
	require.Equal(t, "b", recent[1].ID)

	require.Equal(t, bed.RightLateral, recent[0].Position)
	require.Equal(t, audit.OutcomeAborted, recent[0].Outcome)
	require.Equal(t, 30, recent[0].StepsPlanned)
	require.EqualValues(t, 9000, recent[0].DurationMS)
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	store, err := storage.Open(path, zap.NewNop())
	require.NoError(t, err)
	store.Record(record("persisted", bed.LeftLateral, audit.OutcomeCompleted, time.Now().UTC()))
	require.NoError(t, store.Close())

	reopened, err := storage.Open(path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, reopened.Close()) })

	recent, err := reopened.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, "persisted", recent[0].ID)
}

func TestOpenCreatesEmptySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	store, err := storage.Open(path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	recent, err := store.Recent(0)
	require.NoError(t, err)
	require.Empty(t, recent)
}

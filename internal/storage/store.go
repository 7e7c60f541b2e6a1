// Package storage persists finished repositioning records to SQLite so
// caregiver history survives daemon restarts.
package storage

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/carebot-oss/carebot/pkg/audit"
	"github.com/carebot-oss/carebot/pkg/bed"
)

// RecordRow is the persisted shape of one repositioning attempt.
type RecordRow struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)"`
	Timestamp      time.Time `gorm:"index"`
	Position       string    `gorm:"type:varchar(32)"`
	Reason         string    `gorm:"type:varchar(255)"`
	Outcome        string    `gorm:"type:varchar(16);index"`
	Detail         string    `gorm:"type:varchar(255)"`
	StepsCompleted int
	StepsPlanned   int
	DurationMS     int64
}

// TableName fixes the table name independent of struct renames.
func (RecordRow) TableName() string { return "attempt_records" }

// Store is a durable audit.Sink backed by SQLite.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

var _ audit.Sink = (*Store)(nil)

// Open opens or creates the database at path and migrates the schema.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	// SQLite takes one writer; more connections just trade errors
	// for lock contention.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("audit db handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&RecordRow{}); err != nil {
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Record implements audit.Sink. Failures are logged, never propagated;
// the engine must not stall on history writes.
func (s *Store) Record(rec audit.Record) {
	row := rowFromRecord(rec)
	if err := s.db.Create(&row).Error; err != nil {
		s.log.Error("persist attempt record",
			zap.String("id", rec.ID),
			zap.Error(err))
	}
}

// Recent returns up to n records, newest first. n of zero or below
// defaults to 50.
func (s *Store) Recent(n int) ([]audit.Record, error) {
	if n <= 0 {
		n = 50
	}

	var rows []RecordRow
	err := s.db.Order("timestamp DESC").Limit(n).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query attempt records: %w", err)
	}

	out := make([]audit.Record, len(rows))
	for i, row := range rows {
		out[i] = row.toRecord()
	}
	return out, nil
}

// Count returns the number of persisted records.
func (s *Store) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&RecordRow{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count attempt records: %w", err)
	}
	return count, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func rowFromRecord(rec audit.Record) RecordRow {
	return RecordRow{
		ID:             rec.ID,
		Timestamp:      rec.Timestamp,
		Position:       string(rec.Position),
		Reason:         rec.Reason,
		Outcome:        string(rec.Outcome),
		Detail:         rec.Detail,
		StepsCompleted: rec.StepsCompleted,
		StepsPlanned:   rec.StepsPlanned,
		DurationMS:     rec.DurationMS,
	}
}

func (r RecordRow) toRecord() audit.Record {
	return audit.Record{
		ID:             r.ID,
		Timestamp:      r.Timestamp,
		Position:       bed.Position(r.Position),
		Reason:         r.Reason,
		Outcome:        audit.Outcome(r.Outcome),
		Detail:         r.Detail,
		StepsCompleted: r.StepsCompleted,
		StepsPlanned:   r.StepsPlanned,
		DurationMS:     r.DurationMS,
	}
}

package audit

import "sync"

// DefaultMemoryCapacity bounds the in-memory record log.
const DefaultMemoryCapacity = 500

// MemoryLog is a bounded in-memory Sink. It backs the recent-activity
// API and keeps the newest records when full.
type MemoryLog struct {
	mu      sync.Mutex
	records []Record
	cap     int
}

// NewMemoryLog returns a MemoryLog holding at most capacity records.
// A capacity of zero or below takes the default.
func NewMemoryLog(capacity int) *MemoryLog {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryLog{cap: capacity}
}

// Record implements Sink.
func (l *MemoryLog) Record(rec Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	if len(l.records) > l.cap {
		l.records = l.records[len(l.records)-l.cap:]
	}
}

// Recent returns up to n records, newest first. n of zero or below
// returns everything retained.
func (l *MemoryLog) Recent(n int) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.records) {
		n = len(l.records)
	}
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = l.records[len(l.records)-1-i]
	}
	return out
}

// Len returns the number of retained records.
func (l *MemoryLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

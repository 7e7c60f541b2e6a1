package protocol

import (
	"github.com/carebot-oss/carebot/pkg/audit"
	"github.com/carebot-oss/carebot/pkg/engine"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewStatusMessage creates a status message from an engine snapshot
func NewStatusMessage(st engine.Status) (*Message, error) {
	return NewMessage(TypeStatus, st)
}

// NewEventMessage creates an event message
func NewEventMessage(ev engine.Event) (*Message, error) {
	return NewMessage(TypeEvent, ev)
}

// NewAuditMessage creates an audit message from a finished record
func NewAuditMessage(rec audit.Record) (*Message, error) {
	return NewMessage(TypeAudit, rec)
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: 0, // Will be set by NewMessage
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetStatusData extracts an engine snapshot from a message
func (m *Message) GetStatusData() (*engine.Status, error) {
	var data engine.Status
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetEventData extracts an engine event from a message
func (m *Message) GetEventData() (*engine.Event, error) {
	var data engine.Event
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAuditData extracts an audit record from a message
func (m *Message) GetAuditData() (*audit.Record, error) {
	var data audit.Record
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

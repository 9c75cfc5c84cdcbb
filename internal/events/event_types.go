package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/campusdesk/officehours/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventFacultyAdded   EventType = "faculty_added"
	EventStatusUpdated  EventType = "status_updated"
	EventFacultyRemoved EventType = "faculty_removed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	FacultyID string      `json:"faculty_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RecordPayload carries the full record after a create or status change.
type RecordPayload struct {
	Record domain.StatusRecord `json:"record"`
}

// RemovedPayload identifies a deleted record.
type RemovedPayload struct {
	ID string `json:"id"`
}

// NewEvent stamps a fresh event id and timestamp.
func NewEvent(eventType EventType, facultyID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		FacultyID: facultyID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

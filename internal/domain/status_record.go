package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status enumerates the availability states a faculty member can publish.
type Status string

const (
	StatusAvailable Status = "available"
	StatusBusy      Status = "busy"
	StatusAway      Status = "away"
)

// DefaultStatus is applied when a record is created without a status.
const DefaultStatus = StatusAway

// Statuses lists every valid status in display order.
func Statuses() []Status {
	return []Status{StatusAvailable, StatusBusy, StatusAway}
}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusBusy, StatusAway:
		return true
	}
	return false
}

// ParseStatus converts external text into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// StatusRecord is the availability entry of a single faculty member.
type StatusRecord struct {
	ID           string
	DisplayName  string
	ContactEmail string
	Department   string
	Location     string
	Phone        *string
	OfficeHours  *string
	Status       Status
	Note         *string
	LastUpdated  time.Time
	Active       bool
}

// Clone returns a deep copy so callers never share pointer fields with the store.
func (r StatusRecord) Clone() StatusRecord {
	r.Phone = cloneString(r.Phone)
	r.OfficeHours = cloneString(r.OfficeHours)
	r.Note = cloneString(r.Note)
	return r
}

// NewStatusRecord carries creation input. Zero Status means DefaultStatus and a
// nil Active means true.
type NewStatusRecord struct {
	DisplayName  string
	ContactEmail string
	Department   string
	Location     string
	Phone        *string
	OfficeHours  *string
	Status       Status
	Note         *string
	Active       *bool
}

// StatusUpdate replaces both Status and Note of a record. A nil Note clears it.
type StatusUpdate struct {
	Status Status
	Note   *string
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

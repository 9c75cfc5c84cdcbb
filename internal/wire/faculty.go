// Package wire holds the JSON shape of a status record shared by the REST
// surface, the live channel, the event relay and clients.
package wire

import (
	"time"

	"github.com/campusdesk/officehours/internal/domain"
)

// Faculty is the wire shape of a status record.
type Faculty struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Department    string        `json:"department"`
	Office        string        `json:"office"`
	Phone         *string       `json:"phone"`
	OfficeHours   *string       `json:"officeHours"`
	Status        domain.Status `json:"status"`
	CustomMessage *string       `json:"customMessage"`
	LastUpdated   time.Time     `json:"lastUpdated"`
	IsActive      bool          `json:"isActive"`
}

// NewFaculty maps a domain record to its wire shape.
func NewFaculty(rec domain.StatusRecord) Faculty {
	return Faculty{
		ID:            rec.ID,
		Name:          rec.DisplayName,
		Email:         rec.ContactEmail,
		Department:    rec.Department,
		Office:        rec.Location,
		Phone:         rec.Phone,
		OfficeHours:   rec.OfficeHours,
		Status:        rec.Status,
		CustomMessage: rec.Note,
		LastUpdated:   rec.LastUpdated,
		IsActive:      rec.Active,
	}
}

// NewFacultyList maps records preserving order; never returns nil.
func NewFacultyList(recs []domain.StatusRecord) []Faculty {
	out := make([]Faculty, 0, len(recs))
	for _, rec := range recs {
		out = append(out, NewFaculty(rec))
	}
	return out
}

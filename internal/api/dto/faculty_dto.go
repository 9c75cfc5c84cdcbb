package dto

import (
	"github.com/campusdesk/officehours/internal/domain"
	"github.com/campusdesk/officehours/internal/wire"
)

// CreateFacultyRequest payload for POST /api/faculty.
type CreateFacultyRequest struct {
	Name          string  `json:"name" validate:"required,max=200"`
	Email         string  `json:"email" validate:"required,email,max=254"`
	Department    string  `json:"department" validate:"required,max=200"`
	Office        string  `json:"office" validate:"required,max=200"`
	Phone         *string `json:"phone" validate:"omitempty,max=50"`
	OfficeHours   *string `json:"officeHours" validate:"omitempty,max=200"`
	Status        string  `json:"status" validate:"omitempty,oneof=available busy away"`
	CustomMessage *string `json:"customMessage" validate:"omitempty,max=500"`
	IsActive      *bool   `json:"isActive"`
}

// UpdateStatusRequest payload for PATCH /api/faculty/:id/status.
type UpdateStatusRequest struct {
	Status        string  `json:"status" validate:"required,oneof=available busy away"`
	CustomMessage *string `json:"customMessage" validate:"omitempty,max=500"`
}

// QRDataResponse pairs the scannable locator with the record it resolves to.
type QRDataResponse struct {
	QRData  string          `json:"qrData"`
	Faculty wire.Faculty `json:"faculty"`
}

// ToNewStatusRecord converts the request into store input. Status has already
// passed validation.
func (r CreateFacultyRequest) ToNewStatusRecord() domain.NewStatusRecord {
	return domain.NewStatusRecord{
		DisplayName:  r.Name,
		ContactEmail: r.Email,
		Department:   r.Department,
		Location:     r.Office,
		Phone:        r.Phone,
		OfficeHours:  r.OfficeHours,
		Status:       domain.Status(r.Status),
		Note:         r.CustomMessage,
		Active:       r.IsActive,
	}
}

// ToStatusUpdate converts the request into store input.
func (r UpdateStatusRequest) ToStatusUpdate() domain.StatusUpdate {
	return domain.StatusUpdate{
		Status: domain.Status(r.Status),
		Note:   r.CustomMessage,
	}
}

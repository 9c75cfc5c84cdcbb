// Package seed fills the record store at process start.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusdesk/officehours/internal/config"
	"github.com/campusdesk/officehours/internal/domain"
	"github.com/campusdesk/officehours/internal/repository"
)

// Defaults returns the demo faculty shipped with the service.
func Defaults() []domain.NewStatusRecord {
	return []domain.NewStatusRecord{
		{
			DisplayName:  "Dr. Sarah Johnson",
			ContactEmail: "s.johnson@university.edu",
			Department:   "Computer Science Department",
			Location:     "Room 204B, Tech Building",
			Phone:        strPtr("(555) 123-4567"),
			OfficeHours:  strPtr("Monday - Friday: 2:00 PM - 4:00 PM"),
			Status:       domain.StatusAvailable,
			Note:         strPtr("Ready for student visits and questions"),
			Active:       boolPtr(true),
		},
		{
			DisplayName:  "Prof. Michael Chen",
			ContactEmail: "m.chen@university.edu",
			Department:   "Mathematics Department",
			Location:     "Room 301A, Science Building",
			Phone:        strPtr("(555) 234-5678"),
			OfficeHours:  strPtr("Tuesday, Thursday: 1:00 PM - 3:00 PM"),
			Status:       domain.StatusBusy,
			Note:         strPtr("In meeting until 4:30 PM"),
			Active:       boolPtr(true),
		},
		{
			DisplayName:  "Dr. Emily Rodriguez",
			ContactEmail: "e.rodriguez@university.edu",
			Department:   "Physics Department",
			Location:     "Room 105C, Physics Building",
			Phone:        strPtr("(555) 345-6789"),
			OfficeHours:  strPtr("Monday, Wednesday, Friday: 10:00 AM - 12:00 PM"),
			Status:       domain.StatusAway,
			Note:         strPtr("Back at 3:00 PM"),
			Active:       boolPtr(true),
		},
	}
}

// Apply creates every record in order and returns how many were stored. It
// stops at the first invalid record or repeated e-mail so a broken seed is
// noticed at startup.
func Apply(ctx context.Context, repo repository.StatusRepository, records []domain.NewStatusRecord, logger *zap.Logger) (int, error) {
	for i, rec := range records {
		created, err := repo.CreateUnique(ctx, rec)
		if err != nil {
			return i, fmt.Errorf("seed record %d (%s): %w", i, rec.ContactEmail, err)
		}
		logger.Debug("seeded faculty",
			zap.String("faculty_id", created.ID),
			zap.String("email", created.ContactEmail))
	}
	return len(records), nil
}

func strPtr(s string) *string {
	return &s
}

func boolPtr(b bool) *bool {
	return &b
}

// Source names where Resolve found its records.
type Source string

const (
	SourceNone     Source = "none"
	SourcePostgres Source = "postgres"
	SourceFile     Source = "file"
	SourceDefaults Source = "defaults"
)

// Resolve picks the seed records: Postgres when db is non-nil, else the YAML
// file when configured, else Defaults.
func Resolve(ctx context.Context, cfg config.SeedConfig, db Querier) ([]domain.NewStatusRecord, Source, error) {
	switch {
	case cfg.Disabled:
		return nil, SourceNone, nil
	case db != nil:
		recs, err := ImportPostgres(ctx, db)
		return recs, SourcePostgres, err
	case cfg.File != "":
		recs, err := LoadFile(cfg.File)
		return recs, SourceFile, err
	}
	return Defaults(), SourceDefaults, nil
}

package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/campusdesk/officehours/internal/domain"
)

// Querier is the subset of pgx.Conn the importer needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const importQuery = `
        SELECT name, email, department, office, phone, office_hours, status, custom_message, is_active
        FROM faculty
        ORDER BY last_updated, email`

// ImportPostgres reads the faculty directory from an existing database table.
// Rows with an unknown status fall back to the default status.
func ImportPostgres(ctx context.Context, db Querier) ([]domain.NewStatusRecord, error) {
	rows, err := db.Query(ctx, importQuery)
	if err != nil {
		return nil, fmt.Errorf("query faculty: %w", err)
	}
	defer rows.Close()

	var result []domain.NewStatusRecord
	for rows.Next() {
		var (
			rec    domain.NewStatusRecord
			status string
			active bool
		)
		if err := rows.Scan(
			&rec.DisplayName,
			&rec.ContactEmail,
			&rec.Department,
			&rec.Location,
			&rec.Phone,
			&rec.OfficeHours,
			&status,
			&rec.Note,
			&active,
		); err != nil {
			return nil, fmt.Errorf("scan faculty: %w", err)
		}
		if parsed, err := domain.ParseStatus(status); err == nil {
			rec.Status = parsed
		}
		rec.Active = &active
		result = append(result, rec)
	}
	return result, rows.Err()
}

package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/campusdesk/officehours/internal/domain"
	"github.com/campusdesk/officehours/internal/events"
	"github.com/campusdesk/officehours/internal/repository"
	apperrors "github.com/campusdesk/officehours/pkg/util/errorutil"
)

// StatusService orchestrates the record store and publishes change events.
type StatusService struct {
	records    repository.StatusRepository
	dispatcher events.Dispatcher
	baseURL    string
	logger     *zap.Logger
}

// StatusDependencies bundles collaborators for the status service.
type StatusDependencies struct {
	Records    repository.StatusRepository
	Dispatcher events.Dispatcher
	BaseURL    string
	Logger     *zap.Logger
}

// Locator is the scannable string for a record together with the record.
type Locator struct {
	URL    string
	Record *domain.StatusRecord
}

// NewStatusService constructs the service.
func NewStatusService(deps StatusDependencies) *StatusService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusService{
		records:    deps.Records,
		dispatcher: deps.Dispatcher,
		baseURL:    strings.TrimRight(deps.BaseURL, "/"),
		logger:     logger,
	}
}

// List returns active records.
func (s *StatusService) List(ctx context.Context) ([]domain.StatusRecord, error) {
	recs, err := s.records.ListActive(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return recs, nil
}

// Get fetches one record by id, including inactive ones.
func (s *StatusService) Get(ctx context.Context, id string) (*domain.StatusRecord, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err, id)
	}
	return rec, nil
}

// Create stores a new record and announces it to live subscribers. The e-mail
// must not belong to another record.
func (s *StatusService) Create(ctx context.Context, input domain.NewStatusRecord) (*domain.StatusRecord, error) {
	rec, err := s.records.CreateUnique(ctx, input)
	if err != nil {
		return nil, mapRepositoryError(err, "")
	}

	s.logger.Info("faculty created",
		zap.String("faculty_id", rec.ID),
		zap.String("status", string(rec.Status)))
	s.publishEvent(ctx, events.NewEvent(events.EventFacultyAdded, rec.ID, events.RecordPayload{Record: *rec}))
	return rec, nil
}

// UpdateStatus replaces status and note of a record and announces the change.
func (s *StatusService) UpdateStatus(ctx context.Context, id string, update domain.StatusUpdate) (*domain.StatusRecord, error) {
	if !update.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{
			"status": "must be one of available, busy, away",
		})
	}

	rec, err := s.records.UpdateStatus(ctx, id, update)
	if err != nil {
		return nil, mapRepositoryError(err, id)
	}

	s.logger.Info("faculty status updated",
		zap.String("faculty_id", rec.ID),
		zap.String("status", string(rec.Status)),
		zap.Bool("has_note", rec.Note != nil))
	s.publishEvent(ctx, events.NewEvent(events.EventStatusUpdated, rec.ID, events.RecordPayload{Record: *rec}))
	return rec, nil
}

// Delete removes a record entirely and announces the removal.
func (s *StatusService) Delete(ctx context.Context, id string) error {
	removed, err := s.records.Delete(ctx, id)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !removed {
		return apperrors.NewNotFound("faculty", map[string]any{"id": id})
	}

	s.logger.Info("faculty deleted", zap.String("faculty_id", id))
	s.publishEvent(ctx, events.NewEvent(events.EventFacultyRemoved, id, events.RemovedPayload{ID: id}))
	return nil
}

// Locator builds the string a QR encoder turns into an image.
func (s *StatusService) Locator(ctx context.Context, id string) (*Locator, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Locator{URL: s.LocatorURL(rec.ID), Record: rec}, nil
}

// LocatorURL returns the status page URL for id without touching the store.
func (s *StatusService) LocatorURL(id string) string {
	return s.baseURL + "/faculty/" + url.PathEscape(id)
}

// Count reports the number of stored records, active or not.
func (s *StatusService) Count(ctx context.Context) int {
	return s.records.Count(ctx)
}

func (s *StatusService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	// Delivery problems never fail the write that triggered them.
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event delivery incomplete",
			zap.String("event_type", string(event.Type)),
			zap.String("faculty_id", event.FacultyID),
			zap.Error(err))
	}
}

func mapRepositoryError(err error, id string) error {
	var (
		fieldErr *repository.FieldError
		dupErr   *repository.DuplicateEmailError
	)
	switch {
	case errors.As(err, &dupErr):
		return apperrors.NewConflict("email already registered", map[string]any{
			"email": dupErr.Email,
			"id":    dupErr.ExistingID,
		})
	case errors.As(err, &fieldErr):
		details := make(map[string]any, len(fieldErr.Fields))
		for k, v := range fieldErr.Fields {
			details[k] = v
		}
		return apperrors.NewValidationError("invalid faculty record", details)
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("faculty", map[string]any{"id": id})
	}
	return apperrors.NewInternalError(err)
}

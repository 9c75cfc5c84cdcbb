package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusdesk/officehours/internal/domain"
)

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("status record not found")
	// ErrInvalidRecord is matched by every *FieldError.
	ErrInvalidRecord = errors.New("invalid status record")
	// ErrDuplicateEmail is matched by every *DuplicateEmailError.
	ErrDuplicateEmail = errors.New("email already registered")
)

// DuplicateEmailError reports the record that already holds an e-mail.
type DuplicateEmailError struct {
	Email      string
	ExistingID string
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("%s: %s (id %s)", ErrDuplicateEmail, e.Email, e.ExistingID)
}

func (e *DuplicateEmailError) Is(target error) bool {
	return target == ErrDuplicateEmail
}

// FieldError lists the fields that failed validation, keyed by field name.
type FieldError struct {
	Fields map[string]string
}

func (e *FieldError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("%s (%s)", ErrInvalidRecord, strings.Join(parts, "; "))
}

func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidRecord
}

// StatusRepository is the authoritative holder of status records.
type StatusRepository interface {
	GetByID(ctx context.Context, id string) (*domain.StatusRecord, error)
	GetByEmail(ctx context.Context, email string) (*domain.StatusRecord, error)
	ListActive(ctx context.Context) ([]domain.StatusRecord, error)
	Create(ctx context.Context, input domain.NewStatusRecord) (*domain.StatusRecord, error)
	// CreateUnique is Create that fails with *DuplicateEmailError when another
	// record already holds the same e-mail. The check and insert are atomic.
	CreateUnique(ctx context.Context, input domain.NewStatusRecord) (*domain.StatusRecord, error)
	UpdateStatus(ctx context.Context, id string, update domain.StatusUpdate) (*domain.StatusRecord, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) int
}

// Option customizes the in-memory repository.
type Option func(*memoryStatusRepository)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *memoryStatusRepository) {
		r.now = now
	}
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(next func() string) Option {
	return func(r *memoryStatusRepository) {
		r.newID = next
	}
}

type memoryStatusRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.StatusRecord
	order   []string
	now     func() time.Time
	newID   func() string
}

// NewMemoryStatusRepository builds an empty volatile repository.
func NewMemoryStatusRepository(opts ...Option) StatusRepository {
	r := &memoryStatusRepository{
		records: make(map[string]*domain.StatusRecord),
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *memoryStatusRepository) GetByID(ctx context.Context, id string) (*domain.StatusRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := rec.Clone()
	return &out, nil
}

func (r *memoryStatusRepository) GetByEmail(ctx context.Context, email string) (*domain.StatusRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec := r.findByEmail(email)
	if rec == nil {
		return nil, ErrNotFound
	}
	out := rec.Clone()
	return &out, nil
}

func (r *memoryStatusRepository) findByEmail(email string) *domain.StatusRecord {
	email = strings.TrimSpace(email)
	for _, id := range r.order {
		if rec := r.records[id]; strings.EqualFold(rec.ContactEmail, email) {
			return rec
		}
	}
	return nil
}

func (r *memoryStatusRepository) ListActive(ctx context.Context) ([]domain.StatusRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.StatusRecord, 0, len(r.order))
	for _, id := range r.order {
		rec := r.records[id]
		if !rec.Active {
			continue
		}
		result = append(result, rec.Clone())
	}
	return result, nil
}

func (r *memoryStatusRepository) Create(ctx context.Context, input domain.NewStatusRecord) (*domain.StatusRecord, error) {
	if err := validateNew(input); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insert(input)
}

func (r *memoryStatusRepository) CreateUnique(ctx context.Context, input domain.NewStatusRecord) (*domain.StatusRecord, error) {
	if err := validateNew(input); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing := r.findByEmail(input.ContactEmail); existing != nil {
		return nil, &DuplicateEmailError{
			Email:      strings.TrimSpace(input.ContactEmail),
			ExistingID: existing.ID,
		}
	}
	return r.insert(input)
}

// insert stores a validated record. Callers hold r.mu.
func (r *memoryStatusRepository) insert(input domain.NewStatusRecord) (*domain.StatusRecord, error) {
	status := input.Status
	if status == "" {
		status = domain.DefaultStatus
	}
	active := true
	if input.Active != nil {
		active = *input.Active
	}

	id := r.newID()
	if _, exists := r.records[id]; exists {
		return nil, fmt.Errorf("generated duplicate id %q", id)
	}
	rec := domain.StatusRecord{
		ID:           id,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		ContactEmail: strings.TrimSpace(input.ContactEmail),
		Department:   strings.TrimSpace(input.Department),
		Location:     strings.TrimSpace(input.Location),
		Phone:        nonEmpty(input.Phone),
		OfficeHours:  nonEmpty(input.OfficeHours),
		Status:       status,
		Note:         nonEmpty(input.Note),
		LastUpdated:  r.now(),
		Active:       active,
	}
	stored := rec.Clone()
	r.records[id] = &stored
	r.order = append(r.order, id)
	return &rec, nil
}

func (r *memoryStatusRepository) UpdateStatus(ctx context.Context, id string, update domain.StatusUpdate) (*domain.StatusRecord, error) {
	if !update.Status.Valid() {
		return nil, &FieldError{Fields: map[string]string{"status": fmt.Sprintf("must be one of %v", domain.Statuses())}}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}

	// Build the replacement first so a reader never sees a half-applied update.
	next := rec.Clone()
	next.Status = update.Status
	next.Note = nonEmpty(update.Note)
	next.LastUpdated = r.nextTimestamp(rec.LastUpdated)
	// Key by the stored id; the caller's string may alias a reused request buffer.
	r.records[next.ID] = &next

	out := next.Clone()
	return &out, nil
}

func (r *memoryStatusRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return false, nil
	}
	delete(r.records, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (r *memoryStatusRepository) Count(ctx context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// nextTimestamp keeps LastUpdated strictly increasing per record even when the
// clock has coarse resolution or steps backwards.
func (r *memoryStatusRepository) nextTimestamp(prev time.Time) time.Time {
	now := r.now()
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}

func validateNew(input domain.NewStatusRecord) error {
	fields := map[string]string{}
	required := map[string]string{
		"name":       input.DisplayName,
		"email":      input.ContactEmail,
		"department": input.Department,
		"office":     input.Location,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			fields[name] = "is required"
		}
	}
	if input.Status != "" && !input.Status.Valid() {
		fields["status"] = fmt.Sprintf("must be one of %v", domain.Statuses())
	}
	if len(fields) > 0 {
		return &FieldError{Fields: fields}
	}
	return nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

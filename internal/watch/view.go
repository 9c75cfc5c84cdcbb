// Package watch consumes the live channel and keeps a local copy of the
// faculty directory.
package watch

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/campusdesk/officehours/internal/wire"
)

// Frame is a decoded live channel message.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// View is a replace-by-id mirror of the server's active records. Updates that
// are older than what the view already holds are ignored, so frames applied
// out of order converge on the newest state. Removed ids are remembered so a
// late update cannot bring a record back; ids are never reused.
type View struct {
	mu      sync.RWMutex
	records map[string]wire.Faculty
	removed map[string]struct{}
	synced  bool
}

// NewView returns an empty view.
func NewView() *View {
	return &View{
		records: make(map[string]wire.Faculty),
		removed: make(map[string]struct{}),
	}
}

// Apply folds one frame into the view and returns the affected record ids.
func (v *View) Apply(frame Frame) ([]string, error) {
	switch frame.Type {
	case "initial_data":
		var list []wire.Faculty
		if err := json.Unmarshal(frame.Data, &list); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		v.mu.Lock()
		defer v.mu.Unlock()
		v.records = make(map[string]wire.Faculty, len(list))
		ids := make([]string, 0, len(list))
		for _, rec := range list {
			v.records[rec.ID] = rec
			delete(v.removed, rec.ID)
			ids = append(ids, rec.ID)
		}
		v.synced = true
		return ids, nil

	case "faculty_added", "status_updated":
		var rec wire.Faculty
		if err := json.Unmarshal(frame.Data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", frame.Type, err)
		}
		v.mu.Lock()
		defer v.mu.Unlock()
		if _, gone := v.removed[rec.ID]; gone {
			return nil, nil
		}
		if current, ok := v.records[rec.ID]; ok && current.LastUpdated.After(rec.LastUpdated) {
			return nil, nil
		}
		if !rec.IsActive {
			delete(v.records, rec.ID)
		} else {
			v.records[rec.ID] = rec
		}
		return []string{rec.ID}, nil

	case "faculty_removed":
		var removed struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(frame.Data, &removed); err != nil {
			return nil, fmt.Errorf("decode removal: %w", err)
		}
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.records, removed.ID)
		v.removed[removed.ID] = struct{}{}
		return []string{removed.ID}, nil
	}
	return nil, fmt.Errorf("unknown frame type %q", frame.Type)
}

// Synced reports whether the initial snapshot has been applied.
func (v *View) Synced() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.synced
}

// Get returns one record.
func (v *View) Get(id string) (wire.Faculty, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	rec, ok := v.records[id]
	return rec, ok
}

// Records returns the view sorted by name then id.
func (v *View) Records() []wire.Faculty {
	v.mu.RLock()
	out := make([]wire.Faculty, 0, len(v.records))
	for _, rec := range v.records {
		out = append(out, rec)
	}
	v.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

package entity

import (
	"context"
	"sort"
	"strings"
	"sync"

	"atlasforge.io/internal/ids"
	"atlasforge.io/internal/store"
)

const eventsTable = "events"

// EventRecord is a site event. Its remote columns carry the same names as
// the application-facing fields, so no mapping table applies.
type EventRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	EndDate     string `json:"endDate,omitempty"`
	Location    string `json:"location"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// EventRepository mirrors the events table. Events are unordered at fetch
// time; the presentation edge re-sorts with SortByDateDesc.
type EventRepository struct {
	store store.RecordStore
	newID func() string

	mu     sync.RWMutex
	loaded bool
	events []EventRecord
}

// EventOption configures an EventRepository.
type EventOption func(*EventRepository)

// WithEventIDs overrides id generation. Test hook.
func WithEventIDs(fn func() string) EventOption {
	return func(r *EventRepository) {
		if fn != nil {
			r.newID = fn
		}
	}
}

func NewEventRepository(st store.RecordStore, opts ...EventOption) *EventRepository {
	r := &EventRepository{store: st, newID: ids.New}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List returns the mirrored events in store order.
func (r *EventRepository) List(ctx context.Context) ([]EventRecord, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]EventRecord(nil), r.events...), nil
}

// Create validates, inserts remotely, then appends to the mirror.
func (r *EventRepository) Create(ctx context.Context, draft EventRecord) (EventRecord, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return EventRecord{}, validationf("title is required")
	}
	if strings.TrimSpace(draft.Date) == "" {
		return EventRecord{}, validationf("date is required")
	}
	if strings.TrimSpace(draft.Location) == "" {
		return EventRecord{}, validationf("location is required")
	}
	if err := r.ensureLoaded(ctx); err != nil {
		return EventRecord{}, err
	}

	draft.ID = r.newID()
	inserted, err := r.store.Insert(ctx, eventsTable, eventRow(draft))
	if err != nil {
		return EventRecord{}, err
	}
	ev := eventFromRow(inserted)

	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return ev, nil
}

// Update applies a partial patch by id and replaces the mirror entry.
func (r *EventRepository) Update(ctx context.Context, id string, patch store.Row) (EventRecord, error) {
	if strings.TrimSpace(id) == "" {
		return EventRecord{}, validationf("id is required")
	}
	if len(patch) == 0 {
		return EventRecord{}, validationf("patch is empty")
	}
	if err := r.ensureLoaded(ctx); err != nil {
		return EventRecord{}, err
	}

	rows, err := r.store.Update(ctx, eventsTable, patch, store.Filter{"id": id})
	if err != nil {
		return EventRecord{}, err
	}
	if len(rows) == 0 {
		return EventRecord{}, ErrNotFound
	}
	ev := eventFromRow(rows[0])

	r.mu.Lock()
	for i := range r.events {
		if r.events[i].ID == id {
			r.events[i] = ev
			break
		}
	}
	r.mu.Unlock()
	return ev, nil
}

// Delete removes the event remotely and then from the mirror.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return validationf("id is required")
	}
	if err := r.ensureLoaded(ctx); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, eventsTable, store.Filter{"id": id}); err != nil {
		return err
	}
	r.mu.Lock()
	kept := r.events[:0]
	for _, ev := range r.events {
		if ev.ID != id {
			kept = append(kept, ev)
		}
	}
	r.events = kept
	r.mu.Unlock()
	return nil
}

func (r *EventRepository) ensureLoaded(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}
	rows, err := r.store.Select(ctx, eventsTable, nil)
	if err != nil {
		return err
	}
	events := make([]EventRecord, 0, len(rows))
	for _, row := range rows {
		events = append(events, eventFromRow(row))
	}
	r.mu.Lock()
	if !r.loaded {
		r.events = events
		r.loaded = true
	}
	r.mu.Unlock()
	return nil
}

// SortByDateDesc orders events latest-first. Dates are ISO-8601 strings, so
// lexicographic order is chronological order.
func SortByDateDesc(events []EventRecord) []EventRecord {
	out := append([]EventRecord(nil), events...)
	sort.SliceStable(out, func(i, k int) bool {
		return out[i].Date > out[k].Date
	})
	return out
}

func eventRow(ev EventRecord) store.Row {
	return store.Row{
		"id":          ev.ID,
		"title":       ev.Title,
		"date":        ev.Date,
		"endDate":     ev.EndDate,
		"location":    ev.Location,
		"description": ev.Description,
		"imageUrl":    ev.ImageURL,
	}
}

func eventFromRow(row store.Row) EventRecord {
	return EventRecord{
		ID:          str(row, "id"),
		Title:       str(row, "title"),
		Date:        str(row, "date"),
		EndDate:     str(row, "endDate"),
		Location:    str(row, "location"),
		Description: str(row, "description"),
		ImageURL:    str(row, "imageUrl"),
	}
}

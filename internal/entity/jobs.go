package entity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"atlasforge.io/internal/ids"
	"atlasforge.io/internal/store"
)

const jobsTable = "jobs"

// JobStatusInactive hides a posting from the public listing. Any other
// status is publicly visible.
const JobStatusInactive = "Inactive"

const jobStatusActive = "Active"

// jobFields is the bidirectional name mapping between the application-facing
// camelCase keys and the remote snake_case columns.
var jobFields = FieldMapping{
	"careerLevel":        "career_level",
	"hiringManagerEmail": "hiring_manager_email",
	"createdBy":          "created_by",
	"createdAt":          "created_at",
}

// JobPosting is the application-facing view of a job record.
type JobPosting struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Company            string    `json:"company"`
	Location           string    `json:"location"`
	Type               string    `json:"type"`
	Status             string    `json:"status"`
	Highlights         string    `json:"highlights"`
	Responsibilities   string    `json:"responsibilities"`
	Requirements       string    `json:"requirements"`
	CareerLevel        string    `json:"careerLevel"`
	HiringManagerEmail string    `json:"hiringManagerEmail"`
	CreatedBy          string    `json:"createdBy"`
	CreatedAt          time.Time `json:"createdAt"`
}

// JobRepository keeps an in-memory mirror of the jobs table, newest first.
// The mirror is mutated only after the remote store confirms a write, so a
// remote failure never needs a rollback.
type JobRepository struct {
	store store.RecordStore
	newID func() string
	now   func() time.Time

	mu     sync.RWMutex
	loaded bool
	jobs   []JobPosting
}

// JobOption configures a JobRepository.
type JobOption func(*JobRepository)

// WithJobClock overrides the repository time source. Test hook.
func WithJobClock(fn func() time.Time) JobOption {
	return func(r *JobRepository) {
		if fn != nil {
			r.now = fn
		}
	}
}

// WithJobIDs overrides id generation. Test hook.
func WithJobIDs(fn func() string) JobOption {
	return func(r *JobRepository) {
		if fn != nil {
			r.newID = fn
		}
	}
}

func NewJobRepository(st store.RecordStore, opts ...JobOption) *JobRepository {
	r := &JobRepository{store: st, newID: ids.New, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List returns all postings, newest first. The first call fetches from the
// remote store; afterwards the mirror serves reads and is kept current by
// the mutation paths.
func (r *JobRepository) List(ctx context.Context) ([]JobPosting, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]JobPosting(nil), r.jobs...), nil
}

// PublicList returns postings visible on the public site: everything whose
// status is not Inactive.
func (r *JobRepository) PublicList(ctx context.Context) ([]JobPosting, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]JobPosting, 0, len(all))
	for _, j := range all {
		if j.Status != JobStatusInactive {
			out = append(out, j)
		}
	}
	return out, nil
}

// Get returns the posting with the given id from the collection.
func (r *JobRepository) Get(ctx context.Context, id string) (JobPosting, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return JobPosting{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, j := range r.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return JobPosting{}, ErrNotFound
}

// Create validates the draft, writes it to the remote store, and on success
// prepends the stored posting to the mirror.
func (r *JobRepository) Create(ctx context.Context, draft JobPosting, createdBy string) (JobPosting, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return JobPosting{}, validationf("title is required")
	}
	if strings.TrimSpace(draft.Company) == "" {
		return JobPosting{}, validationf("company is required")
	}
	if strings.TrimSpace(draft.Location) == "" {
		return JobPosting{}, validationf("location is required")
	}
	if strings.TrimSpace(draft.Type) == "" {
		return JobPosting{}, validationf("type is required")
	}
	if err := r.ensureLoaded(ctx); err != nil {
		return JobPosting{}, err
	}

	draft.ID = r.newID()
	draft.CreatedBy = createdBy
	draft.CreatedAt = r.now().UTC()
	if strings.TrimSpace(draft.Status) == "" {
		draft.Status = jobStatusActive
	}

	inserted, err := r.store.Insert(ctx, jobsTable, jobFields.ToRemote(jobRow(draft)))
	if err != nil {
		return JobPosting{}, err
	}
	job := jobFromRow(jobFields.FromRemote(inserted))

	r.mu.Lock()
	r.jobs = append([]JobPosting{job}, r.jobs...)
	r.mu.Unlock()
	return job, nil
}

// Update applies a partial patch keyed by application field names. On
// success the mirror entry is replaced by id. Patching an unknown id is
// ErrNotFound.
func (r *JobRepository) Update(ctx context.Context, id string, patch store.Row) (JobPosting, error) {
	if strings.TrimSpace(id) == "" {
		return JobPosting{}, validationf("id is required")
	}
	if len(patch) == 0 {
		return JobPosting{}, validationf("patch is empty")
	}
	if err := r.ensureLoaded(ctx); err != nil {
		return JobPosting{}, err
	}

	rows, err := r.store.Update(ctx, jobsTable, jobFields.ToRemote(patch), store.Filter{"id": id})
	if err != nil {
		return JobPosting{}, err
	}
	if len(rows) == 0 {
		return JobPosting{}, ErrNotFound
	}
	job := jobFromRow(jobFields.FromRemote(rows[0]))

	r.mu.Lock()
	for i := range r.jobs {
		if r.jobs[i].ID == id {
			r.jobs[i] = job
			break
		}
	}
	r.mu.Unlock()
	return job, nil
}

// Delete removes the posting remotely and then from the mirror.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return validationf("id is required")
	}
	if err := r.ensureLoaded(ctx); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, jobsTable, store.Filter{"id": id}); err != nil {
		return err
	}
	r.mu.Lock()
	kept := r.jobs[:0]
	for _, j := range r.jobs {
		if j.ID != id {
			kept = append(kept, j)
		}
	}
	r.jobs = kept
	r.mu.Unlock()
	return nil
}

func (r *JobRepository) ensureLoaded(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}

	rows, err := r.store.Select(ctx, jobsTable, nil)
	if err != nil {
		return err
	}
	jobs := make([]JobPosting, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, jobFromRow(jobFields.FromRemote(row)))
	}
	sort.SliceStable(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})

	r.mu.Lock()
	if !r.loaded {
		r.jobs = jobs
		r.loaded = true
	}
	r.mu.Unlock()
	return nil
}

func jobRow(j JobPosting) store.Row {
	return store.Row{
		"id":                 j.ID,
		"title":              j.Title,
		"company":            j.Company,
		"location":           j.Location,
		"type":               j.Type,
		"status":             j.Status,
		"highlights":         j.Highlights,
		"responsibilities":   j.Responsibilities,
		"requirements":       j.Requirements,
		"careerLevel":        j.CareerLevel,
		"hiringManagerEmail": j.HiringManagerEmail,
		"createdBy":          j.CreatedBy,
		"createdAt":          j.CreatedAt.Format(time.RFC3339),
	}
}

func jobFromRow(row store.Row) JobPosting {
	return JobPosting{
		ID:                 str(row, "id"),
		Title:              str(row, "title"),
		Company:            str(row, "company"),
		Location:           str(row, "location"),
		Type:               str(row, "type"),
		Status:             str(row, "status"),
		Highlights:         str(row, "highlights"),
		Responsibilities:   str(row, "responsibilities"),
		Requirements:       str(row, "requirements"),
		CareerLevel:        str(row, "careerLevel"),
		HiringManagerEmail: str(row, "hiringManagerEmail"),
		CreatedBy:          str(row, "createdBy"),
		CreatedAt:          timestamp(row, "createdAt"),
	}
}

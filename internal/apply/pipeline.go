// Package apply implements the public job application pipeline: resume blob
// upload, application record insert, and a best-effort notification to the
// downstream analyzer.
package apply

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"atlasforge.io/internal/ids"
	"atlasforge.io/internal/store"
)

const applicationsTable = "applications"

// StatusApplied is the initial application status; a downstream analysis
// step advances it later.
const StatusApplied = "applied"

// State of the submission flow, as surfaced to the public form.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// Submission is one public application. Resume is optional.
type Submission struct {
	JobTitle   string
	Name       string
	Email      string
	Phone      string
	ResumeName string
	Resume     []byte
}

// Application is the stored record. ResumePath is a storage path inside the
// private bucket, never a public URL.
type Application struct {
	ID         string `json:"id"`
	JobTitle   string `json:"jobTitle"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	ResumePath string `json:"resumePath,omitempty"`
	Status     string `json:"status"`
}

// Notifier delivers the fire-and-forget analysis trigger.
type Notifier interface {
	AnalyzeAsync(applicationID string)
}

// Pipeline runs submissions. State transitions: idle -> submitting ->
// {success | error}; success returns to idle after the reset delay, error
// holds until the next Submit.
type Pipeline struct {
	store    store.Store
	notifier Notifier
	bucket   string
	reset    time.Duration
	log      zerolog.Logger
	newID    func() string
	now      func() time.Time

	mu    sync.Mutex
	state State
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithResetDelay overrides how long the success state displays before the
// flow returns to idle.
func WithResetDelay(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.reset = d
		}
	}
}

// WithClock overrides the time source. Test hook.
func WithClock(fn func() time.Time) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.now = fn
		}
	}
}

// WithIDs overrides record id generation. Test hook.
func WithIDs(fn func() string) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.newID = fn
		}
	}
}

func NewPipeline(st store.Store, notifier Notifier, bucket string, log zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    st,
		notifier: notifier,
		bucket:   bucket,
		reset:    3 * time.Second,
		log:      log,
		newID:    ids.New,
		now:      time.Now,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State reports the current flow state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Submit runs the three pipeline steps in order. A failed upload aborts
// before any record exists; a failed insert leaves the uploaded blob behind
// as a logged orphan; the analyzer notification can fail or never run
// without affecting the result.
func (p *Pipeline) Submit(ctx context.Context, sub Submission) (Application, error) {
	if err := validate(sub); err != nil {
		return Application{}, err
	}
	p.setState(StateSubmitting)

	var resumePath string
	if len(sub.Resume) > 0 {
		resumePath = p.resumePath(sub.ResumeName)
		if err := p.store.Upload(ctx, p.bucket, resumePath, sub.Resume); err != nil {
			p.setState(StateError)
			return Application{}, err
		}
	}

	app := Application{
		ID:         p.newID(),
		JobTitle:   strings.TrimSpace(sub.JobTitle),
		Name:       strings.TrimSpace(sub.Name),
		Email:      strings.TrimSpace(sub.Email),
		Phone:      strings.TrimSpace(sub.Phone),
		ResumePath: resumePath,
		Status:     StatusApplied,
	}
	if _, err := p.store.Insert(ctx, applicationsTable, applicationRow(app)); err != nil {
		if resumePath != "" {
			// The blob stays; cleanup is an operator task.
			p.log.Warn().Str("bucket", p.bucket).Str("path", resumePath).
				Msg("application insert failed after resume upload, blob orphaned")
		}
		p.setState(StateError)
		return Application{}, err
	}

	if p.notifier != nil {
		p.notifier.AnalyzeAsync(app.ID)
	}

	p.setState(StateSuccess)
	time.AfterFunc(p.reset, func() { p.resetFromSuccess() })
	return app, nil
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// resetFromSuccess returns the flow to idle, unless a newer submission
// already moved it elsewhere.
func (p *Pipeline) resetFromSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateSuccess {
		p.state = StateIdle
	}
}

// resumePath builds a collision-resistant storage name: current time plus a
// random suffix, keeping the original extension.
func (p *Pipeline) resumePath(original string) string {
	ext := path.Ext(original)
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("resumes/%d-%s%s", p.now().UnixMilli(), suffix, ext)
}

func validate(sub Submission) error {
	if strings.TrimSpace(sub.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(sub.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if strings.TrimSpace(sub.JobTitle) == "" {
		return fmt.Errorf("%w: job title is required", ErrValidation)
	}
	return nil
}

func applicationRow(app Application) store.Row {
	return store.Row{
		"id":          app.ID,
		"job_title":   app.JobTitle,
		"name":        app.Name,
		"email":       app.Email,
		"phone":       app.Phone,
		"resume_path": app.ResumePath,
		"status":      app.Status,
	}
}

// Analyzer posts the analysis trigger to the downstream service. Each call
// runs on its own goroutine with a detached context: the submission flow
// never waits on it, and its failure is logged for operators only.
type Analyzer struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func NewAnalyzer(baseURL string, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// AnalyzeAsync fires the notification and returns immediately. At most one
// attempt; no retry, no caller-visible failure.
func (a *Analyzer) AnalyzeAsync(applicationID string) {
	if a.baseURL == "" {
		return
	}
	url := fmt.Sprintf("%s/api/analyze-application/%s", a.baseURL, applicationID)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			a.log.Warn().Err(err).Str("application_id", applicationID).Msg("analyze request build failed")
			return
		}
		resp, err := a.client.Do(req)
		if err != nil {
			a.log.Warn().Err(err).Str("application_id", applicationID).Msg("analyze notification failed")
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			a.log.Warn().Int("status", resp.StatusCode).Str("application_id", applicationID).
				Msg("analyze notification rejected")
		}
	}()
}

// Package httpapi is the HTTP surface: public site endpoints, the admin
// back-office API, and operational probes.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"atlasforge.io/internal/apply"
	"atlasforge.io/internal/auth"
	"atlasforge.io/internal/content"
	"atlasforge.io/internal/entity"
	"atlasforge.io/internal/obs"
	"atlasforge.io/internal/rbac"
	"atlasforge.io/internal/store"
)

const serviceName = "atlasforge-api"

// ReadyProbe checks readiness (DB ping when a DB is configured).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps carries the injected services. All are initialized at process start
// and live for the life of the process.
type Deps struct {
	Sessions *auth.SessionService
	Perms    *rbac.Service
	Jobs     *entity.JobRepository
	Events   *entity.EventRepository
	Users    *entity.UserRepository
	Content  *content.Service
	Pipeline *apply.Pipeline
	Ready    ReadyProbe
	Version  string
	Log      zerolog.Logger
}

// API is the HTTP layer.
type API struct {
	mux      *http.ServeMux
	sessions *auth.SessionService
	perms    *rbac.Service
	jobs     *entity.JobRepository
	events   *entity.EventRepository
	users    *entity.UserRepository
	content  *content.Service
	pipeline *apply.Pipeline
	ready    ReadyProbe
	version  string
	log      zerolog.Logger
}

func New(deps Deps) *API {
	a := &API{
		mux:      http.NewServeMux(),
		sessions: deps.Sessions,
		perms:    deps.Perms,
		jobs:     deps.Jobs,
		events:   deps.Events,
		users:    deps.Users,
		content:  deps.Content,
		pipeline: deps.Pipeline,
		ready:    deps.Ready,
		version:  deps.Version,
		log:      deps.Log,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// public site API
	a.mux.HandleFunc("/api/jobs", a.handlePublicJobs)
	a.mux.HandleFunc("/api/jobs/", a.handlePublicJobDetail)
	a.mux.HandleFunc("/api/events", a.handlePublicEvents)
	a.mux.HandleFunc("/api/content", a.handlePublicContent)
	a.mux.HandleFunc("/api/applications", a.handleApplicationSubmit)
	a.mux.HandleFunc("/api/applications/state", a.handleApplicationState)

	// admin: login entry point is the one unguarded admin path
	a.mux.HandleFunc(rbac.PathLogin, a.handleLoginScreen)
	a.mux.HandleFunc("/admin/api/login", a.handleLogin)
	a.mux.Handle("/admin/", a.withSession(http.HandlerFunc(a.handleAdmin)))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped root handler.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, 8<<20)
	h = RateLimit(h, 20, 10)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h, a.log)
	return obs.Instrument(h)
}

// handleAdmin dispatches everything under /admin/ that survived the guard.
func (a *API) handleAdmin(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/admin/api/session":
		a.handleSession(w, r)
	case "/admin/api/logout":
		a.handleLogout(w, r)
	case "/admin/api/menu":
		a.handleMenu(w, r)
	case "/admin/api/permissions":
		a.handlePermissions(w, r)
	case "/admin/api/jobs":
		a.handleAdminJobs(w, r)
	case "/admin/api/events":
		a.handleAdminEvents(w, r)
	case "/admin/api/users":
		a.handleAdminUsers(w, r)
	case "/admin/api/content":
		a.handleAdminContent(w, r)
	case rbac.PathDashboard, rbac.PathContent, rbac.PathAnalytics,
		rbac.PathJobs, rbac.PathEvents, rbac.PathUsers:
		a.handleAdminScreen(w, r)
	default:
		a.handleAdminScoped(w, r)
	}
}

// --- operational handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return errors.New("invalid request body")
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeEntityError maps entity-layer failures onto status codes. Remote
// detail is returned to admin callers so forms can show it inline.
func writeEntityError(w http.ResponseWriter, err error) {
	var re *store.RemoteError
	switch {
	case errors.Is(err, entity.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, entity.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflict")
	case errors.As(err, &re):
		writeError(w, http.StatusBadGateway, re.Error())
	default:
		writeError(w, http.StatusInternalServerError, "operation failed")
	}
}

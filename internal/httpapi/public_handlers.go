package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"atlasforge.io/internal/entity"
)

// handlePublicJobs lists open positions for the careers page. Inactive
// postings never appear here.
func (a *API) handlePublicJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	jobs, err := a.jobs.PublicList(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "job listing unavailable")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (a *API) handlePublicJobDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/jobs/"), "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	job, err := a.jobs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusBadGateway, "job listing unavailable")
		return
	}
	// Deleted-or-inactive postings look identical from outside.
	if job.Status == entity.JobStatusInactive {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handlePublicEvents returns events latest-first for the news page.
func (a *API) handlePublicEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	events, err := a.events.List(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "event listing unavailable")
		return
	}
	writeJSON(w, http.StatusOK, entity.SortByDateDesc(events))
}

func (a *API) handlePublicContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	tree, err := a.content.Get()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "content unavailable")
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

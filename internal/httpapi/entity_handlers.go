package httpapi

import (
	"net/http"
	"strings"

	"atlasforge.io/internal/auth"
	"atlasforge.io/internal/entity"
	"atlasforge.io/internal/rbac"
	"atlasforge.io/internal/store"
)

// handleAdminScoped dispatches id-suffixed admin routes:
// /admin/api/{jobs|events|users}/{id} and /admin/api/permissions/{role}.
func (a *API) handleAdminScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/admin/api/")
	if path == r.URL.Path {
		http.NotFound(w, r)
		return
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[1] == "" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	switch parts[0] {
	case "jobs":
		a.handleJobResource(w, r, parts[1])
	case "events":
		a.handleEventResource(w, r, parts[1])
	case "users":
		a.handleUserResource(w, r, parts[1])
	case "permissions":
		a.handleRolePermissions(w, r, parts[1])
	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}

// --- jobs ---

func (a *API) handleAdminJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jobs, err := a.jobs.List(r.Context())
		if err != nil {
			writeEntityError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, jobs)
	case http.MethodPost:
		var draft entity.JobPosting
		if err := decodeJSON(r, &draft); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		sess, _ := auth.SessionFromContext(r.Context())
		job, err := a.jobs.Create(r.Context(), draft, sess.Username)
		if err != nil {
			writeEntityError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, job)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (a *API) handleJobResource(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodPatch:
		var patch store.Row
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		job, err := a.jobs.Update(r.Context(), id, patch)
		if err != nil {
			writeEntityError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	case http.MethodDelete:
		if err := a.jobs.Delete(r.Context(), id); err != nil {
			writeEntityError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "PATCH, DELETE")
	}
}

// --- events ---

func (a *API) handleAdminEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		events, err := a.events.List(r.Context())
		if err != nil {
			writeEntityError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	case http.MethodPost:
		var draft entity.EventRecord
		if err := decodeJSON(r, &draft); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ev, err := a.events.Create(r.Context(), draft)
		if err != nil {
			writeEntityError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, ev)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (a *API) handleEventResource(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodPatch:
		var patch store.Row
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ev, err := a.events.Update(r.Context(), id, patch)
		if err != nil {
			writeEntityError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	case http.MethodDelete:
		if err := a.events.Delete(r.Context(), id); err != nil {
			writeEntityError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "PATCH, DELETE")
	}
}

// --- users (admin role required beyond the session guard) ---

type createUserRequest struct {
	Username            string `json:"username"`
	Name                string `json:"name"`
	Role                string `json:"role"`
	Email               string `json:"email"`
	OrganizationName    string `json:"organizationName"`
	ExternalIdentityRef string `json:"externalIdentityRef"`
	Password            string `json:"password"`
}

func (a *API) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		users, err := a.users.List(r.Context())
		if err != nil {
			writeEntityError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	case http.MethodPost:
		var req createUserRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		draft := entity.ManagedUser{
			Username:            req.Username,
			Name:                req.Name,
			Role:                rbac.Role(req.Role),
			Email:               req.Email,
			OrganizationName:    req.OrganizationName,
			ExternalIdentityRef: req.ExternalIdentityRef,
		}
		user, err := a.users.Create(r.Context(), draft, req.Password)
		if err != nil {
			writeEntityError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	switch r.Method {
	case http.MethodPatch:
		var patch store.Row
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.users.Update(r.Context(), id, patch)
		if err != nil {
			writeEntityError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := a.users.Delete(r.Context(), id); err != nil {
			writeEntityError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "PATCH, DELETE")
	}
}

// --- content ---

func (a *API) handleAdminContent(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tree, err := a.content.Get()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "content unavailable")
			return
		}
		writeJSON(w, http.StatusOK, tree)
	case http.MethodPatch:
		var patch map[string]any
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		tree, err := a.content.Update(patch)
		if err != nil {
			writeError(w, http.StatusBadRequest, "content update failed")
			return
		}
		writeJSON(w, http.StatusOK, tree)
	default:
		methodNotAllowed(w, "GET, PATCH")
	}
}

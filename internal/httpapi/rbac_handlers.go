package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"atlasforge.io/internal/auth"
	"atlasforge.io/internal/rbac"
)

type setPermissionsRequest struct {
	Paths []string `json:"paths"`
}

func (a *API) handleMenu(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "session required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"role": sess.Role,
		"menu": a.perms.VisibleMenu(sess.Role),
	})
}

func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"roles":       rbac.Roles(),
		"permissions": a.perms.Snapshot(),
		"menu":        rbac.FullMenu(),
	})
}

// handleRolePermissions serves PUT /admin/api/permissions/{role}.
func (a *API) handleRolePermissions(w http.ResponseWriter, r *http.Request, roleName string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, http.MethodPut)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	role, err := rbac.ParseRole(roleName)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown role")
		return
	}
	var req setPermissionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.perms.SetPermissions(role, req.Paths); err != nil {
		if errors.Is(err, rbac.ErrUnknownRole) {
			writeError(w, http.StatusNotFound, "unknown role")
			return
		}
		writeError(w, http.StatusInternalServerError, "permission update failed")
		return
	}
	a.log.Info().Str("role", string(role)).Int("paths", len(req.Paths)).Msg("permissions updated")
	writeJSON(w, http.StatusOK, map[string]any{
		"role":  role,
		"paths": a.perms.PermissionsFor(role),
	})
}

// handleAdminScreen answers direct navigation to a protected view. The
// guard already verified the session; per-route permission is deliberately
// not rechecked here.
func (a *API) handleAdminScreen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	sess, _ := auth.SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"screen":  strings.TrimPrefix(r.URL.Path, "/admin/"),
		"session": sess,
		"menu":    a.perms.VisibleMenu(sess.Role),
	})
}

// Package rbac holds the role-permission table and the admin navigation
// filter. One flat role set, no delegation; mutation takes effect
// process-wide immediately.
package rbac

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Role is one of the closed set of admin roles.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleMarketing Role = "marketing"
	RoleHR        Role = "hr"
)

// Admin route paths. The permission table stores these.
const (
	PathLogin     = "/admin/login"
	PathDashboard = "/admin/dashboard"
	PathContent   = "/admin/content"
	PathAnalytics = "/admin/analytics"
	PathJobs      = "/admin/jobs"
	PathEvents    = "/admin/events"
	PathUsers     = "/admin/users"
)

var ErrUnknownRole = errors.New("rbac: unknown role")

// ParseRole validates a role name against the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleMarketing:
		return RoleMarketing, nil
	case RoleHR:
		return RoleHR, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// DefaultPermissions is the table a fresh deployment ships with, usable
// before anyone visits the permission editor.
func DefaultPermissions() map[Role][]string {
	return map[Role][]string{
		RoleAdmin: {
			PathDashboard, PathContent, PathAnalytics,
			PathJobs, PathEvents, PathUsers,
		},
		RoleMarketing: {PathDashboard, PathContent, PathAnalytics, PathEvents},
		RoleHR:        {PathDashboard, PathJobs},
	}
}

// Service owns the mutable role-permission table. Initialized at process
// start, torn down never, mutated only through SetPermissions.
type Service struct {
	mu    sync.RWMutex
	perms map[Role][]string
}

// NewService builds the table from defaults. A nil table means
// DefaultPermissions.
func NewService(defaults map[Role][]string) *Service {
	if defaults == nil {
		defaults = DefaultPermissions()
	}
	perms := make(map[Role][]string, len(defaults))
	for role, paths := range defaults {
		perms[role] = dedupePaths(paths)
	}
	return &Service{perms: perms}
}

// PermissionsFor returns the allowed paths for role. An absent role has
// empty access.
func (s *Service) PermissionsFor(role Role) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := s.perms[role]
	out := make([]string, len(paths))
	copy(out, paths)
	return out
}

// SetPermissions replaces the allowed paths for role. The admin role keeps
// access to the user-management path no matter what the caller sends: the
// editor must not be able to lock every admin out of the screen that edits
// permissions. The store beneath does not enforce this; it is this
// service's invariant only.
func (s *Service) SetPermissions(role Role, paths []string) error {
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}
	clean := dedupePaths(paths)
	if role == RoleAdmin && !contains(clean, PathUsers) {
		clean = append(clean, PathUsers)
	}
	s.mu.Lock()
	s.perms[role] = clean
	s.mu.Unlock()
	return nil
}

// Allowed reports whether role may access path.
func (s *Service) Allowed(role Role, path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return contains(s.perms[role], path)
}

// Snapshot returns a copy of the whole table, roles sorted for stable
// rendering in the permission editor.
func (s *Service) Snapshot() map[Role][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Role][]string, len(s.perms))
	for role, paths := range s.perms {
		cp := make([]string, len(paths))
		copy(cp, paths)
		out[role] = cp
	}
	return out
}

// Roles lists the closed role set in stable order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleMarketing, RoleHR}
}

func dedupePaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func contains(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
	}
	return false
}

// FromConfig converts a string-keyed table (as loaded from YAML) into the
// typed form, rejecting unknown roles.
func FromConfig(table map[string][]string) (map[Role][]string, error) {
	out := make(map[Role][]string, len(table))
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		role, err := ParseRole(k)
		if err != nil {
			return nil, err
		}
		out[role] = table[k]
	}
	return out, nil
}

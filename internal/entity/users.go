package entity

import (
	"context"
	"sort"
	"strings"
	"sync"

	"atlasforge.io/internal/auth"
	"atlasforge.io/internal/ids"
	"atlasforge.io/internal/rbac"
	"atlasforge.io/internal/store"
)

const usersTable = "managed_users"

var userFields = FieldMapping{
	"externalIdentityRef": "external_identity_ref",
	"organizationName":    "organization_name",
	"passwordHash":        "password_hash",
}

// ManagedUser is an admin-managed account. The password hash never appears
// in API responses.
type ManagedUser struct {
	ID                  string    `json:"id"`
	Username            string    `json:"username"`
	Name                string    `json:"name"`
	Role                rbac.Role `json:"role"`
	ExternalIdentityRef string    `json:"externalIdentityRef,omitempty"`
	Email               string    `json:"email,omitempty"`
	OrganizationName    string    `json:"organizationName,omitempty"`
	PasswordHash        string    `json:"-"`
}

// UserRepository mirrors the managed_users table and doubles as the session
// service's directory: login lookups go straight to the store, not the
// mirror, so authentication works before any admin has listed users.
type UserRepository struct {
	store store.RecordStore
	newID func() string

	mu     sync.RWMutex
	loaded bool
	users  []ManagedUser
}

var _ auth.Directory = (*UserRepository)(nil)

// UserOption configures a UserRepository.
type UserOption func(*UserRepository)

// WithUserIDs overrides id generation. Test hook.
func WithUserIDs(fn func() string) UserOption {
	return func(r *UserRepository) {
		if fn != nil {
			r.newID = fn
		}
	}
}

func NewUserRepository(st store.RecordStore, opts ...UserOption) *UserRepository {
	r := &UserRepository{store: st, newID: ids.New}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FindByUsername resolves a username for authentication.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (auth.Account, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" {
		return auth.Account{}, ErrNotFound
	}
	rows, err := r.store.Select(ctx, usersTable, store.Filter{"username": username})
	if err != nil {
		return auth.Account{}, err
	}
	if len(rows) == 0 {
		return auth.Account{}, ErrNotFound
	}
	u := userFromRow(userFields.FromRemote(rows[0]))
	return auth.Account{
		ID:           u.ID,
		Username:     u.Username,
		Name:         u.Name,
		Role:         u.Role,
		PasswordHash: u.PasswordHash,
	}, nil
}

// List returns all managed users sorted by username.
func (r *UserRepository) List(ctx context.Context) ([]ManagedUser, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ManagedUser(nil), r.users...), nil
}

// Create validates and stores a new user with a freshly hashed password.
func (r *UserRepository) Create(ctx context.Context, draft ManagedUser, password string) (ManagedUser, error) {
	draft.Username = strings.TrimSpace(strings.ToLower(draft.Username))
	if draft.Username == "" {
		return ManagedUser{}, validationf("username is required")
	}
	if strings.TrimSpace(draft.Name) == "" {
		return ManagedUser{}, validationf("name is required")
	}
	role, err := rbac.ParseRole(string(draft.Role))
	if err != nil {
		return ManagedUser{}, validationf("unknown role %q", draft.Role)
	}
	draft.Role = role
	// Directory-sourced users authenticate upstream and carry no password.
	if draft.ExternalIdentityRef == "" {
		if strings.TrimSpace(password) == "" {
			return ManagedUser{}, validationf("password is required")
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return ManagedUser{}, err
		}
		draft.PasswordHash = hash
	}
	if err := r.ensureLoaded(ctx); err != nil {
		return ManagedUser{}, err
	}

	draft.ID = r.newID()
	inserted, err := r.store.Insert(ctx, usersTable, userFields.ToRemote(userRow(draft)))
	if err != nil {
		return ManagedUser{}, err
	}
	u := userFromRow(userFields.FromRemote(inserted))

	r.mu.Lock()
	r.users = append(r.users, u)
	sortUsers(r.users)
	r.mu.Unlock()
	return u, nil
}

// Update applies a partial patch by id. A role patch is validated against
// the closed role set before anything goes out.
func (r *UserRepository) Update(ctx context.Context, id string, patch store.Row) (ManagedUser, error) {
	if strings.TrimSpace(id) == "" {
		return ManagedUser{}, validationf("id is required")
	}
	if len(patch) == 0 {
		return ManagedUser{}, validationf("patch is empty")
	}
	if raw, ok := patch["role"]; ok {
		roleStr, _ := raw.(string)
		role, err := rbac.ParseRole(roleStr)
		if err != nil {
			return ManagedUser{}, validationf("unknown role %q", roleStr)
		}
		patch["role"] = string(role)
	}
	if err := r.ensureLoaded(ctx); err != nil {
		return ManagedUser{}, err
	}

	rows, err := r.store.Update(ctx, usersTable, userFields.ToRemote(patch), store.Filter{"id": id})
	if err != nil {
		return ManagedUser{}, err
	}
	if len(rows) == 0 {
		return ManagedUser{}, ErrNotFound
	}
	u := userFromRow(userFields.FromRemote(rows[0]))

	r.mu.Lock()
	for i := range r.users {
		if r.users[i].ID == id {
			r.users[i] = u
			break
		}
	}
	r.mu.Unlock()
	return u, nil
}

// Delete removes the user remotely and from the mirror. Nothing stops an
// admin from deleting the last admin account; recovery is a reseed.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return validationf("id is required")
	}
	if err := r.ensureLoaded(ctx); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, usersTable, store.Filter{"id": id}); err != nil {
		return err
	}
	r.mu.Lock()
	kept := r.users[:0]
	for _, u := range r.users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	r.users = kept
	r.mu.Unlock()
	return nil
}

func (r *UserRepository) ensureLoaded(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}
	rows, err := r.store.Select(ctx, usersTable, nil)
	if err != nil {
		return err
	}
	users := make([]ManagedUser, 0, len(rows))
	for _, row := range rows {
		users = append(users, userFromRow(userFields.FromRemote(row)))
	}
	sortUsers(users)
	r.mu.Lock()
	if !r.loaded {
		r.users = users
		r.loaded = true
	}
	r.mu.Unlock()
	return nil
}

func sortUsers(users []ManagedUser) {
	sort.SliceStable(users, func(i, k int) bool {
		return users[i].Username < users[k].Username
	})
}

func userRow(u ManagedUser) store.Row {
	return store.Row{
		"id":                  u.ID,
		"username":            u.Username,
		"name":                u.Name,
		"role":                string(u.Role),
		"externalIdentityRef": u.ExternalIdentityRef,
		"email":               u.Email,
		"organizationName":    u.OrganizationName,
		"passwordHash":        u.PasswordHash,
	}
}

func userFromRow(row store.Row) ManagedUser {
	return ManagedUser{
		ID:                  str(row, "id"),
		Username:            str(row, "username"),
		Name:                str(row, "name"),
		Role:                rbac.Role(str(row, "role")),
		ExternalIdentityRef: str(row, "externalIdentityRef"),
		Email:               str(row, "email"),
		OrganizationName:    str(row, "organizationName"),
		PasswordHash:        str(row, "passwordHash"),
	}
}

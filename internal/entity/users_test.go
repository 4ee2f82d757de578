package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atlasforge.io/internal/auth"
	"atlasforge.io/internal/rbac"
	"atlasforge.io/internal/store"
	"atlasforge.io/internal/store/memstore"
)

func TestUserCreateHashesPassword(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	repo := NewUserRepository(st, WithUserIDs(seqIDs("usr")))

	created, err := repo.Create(ctx, ManagedUser{
		Username: "Avery", Name: "Avery Chen", Role: rbac.RoleAdmin,
	}, "opensesame")
	require.NoError(t, err)
	assert.Equal(t, "avery", created.Username, "usernames are normalized to lower case")

	rows, err := st.Select(ctx, "managed_users", store.Filter{"id": created.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	hash, _ := rows[0]["password_hash"].(string)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "opensesame", hash)
	assert.NoError(t, auth.VerifyPassword(hash, "opensesame"))
}

func TestUserCreateValidation(t *testing.T) {
	repo := NewUserRepository(memstore.New())
	ctx := context.Background()

	_, err := repo.Create(ctx, ManagedUser{Name: "n", Role: rbac.RoleHR}, "pw")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = repo.Create(ctx, ManagedUser{Username: "u", Name: "n", Role: "superuser"}, "pw")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = repo.Create(ctx, ManagedUser{Username: "u", Name: "n", Role: rbac.RoleHR}, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExternalUserNeedsNoPassword(t *testing.T) {
	repo := NewUserRepository(memstore.New(), WithUserIDs(seqIDs("usr")))
	created, err := repo.Create(context.Background(), ManagedUser{
		Username: "sso.person", Name: "SSO Person", Role: rbac.RoleMarketing,
		ExternalIdentityRef: "idp|84213",
	}, "")
	require.NoError(t, err)
	assert.Empty(t, created.PasswordHash)
}

func TestFindByUsernameReadsTheStoreDirectly(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	repo := NewUserRepository(st, WithUserIDs(seqIDs("usr")))

	// Seed behind the repository's back; a login must still see it.
	_, err := st.Insert(ctx, "managed_users", store.Row{
		"id": "usr_seed", "username": "seeded", "name": "Seeded Admin",
		"role": "admin", "password_hash": "$2a$10$x",
	})
	require.NoError(t, err)

	acc, err := repo.FindByUsername(ctx, "  Seeded  ")
	require.NoError(t, err)
	assert.Equal(t, "usr_seed", acc.ID)
	assert.Equal(t, rbac.RoleAdmin, acc.Role)
	assert.Equal(t, "$2a$10$x", acc.PasswordHash)

	_, err = repo.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserListSortedAndRolePatchValidated(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(memstore.New(), WithUserIDs(seqIDs("usr")))

	for _, name := range []string{"zoe", "mara", "ben"} {
		_, err := repo.Create(ctx, ManagedUser{Username: name, Name: name, Role: rbac.RoleHR}, "pw")
		require.NoError(t, err)
	}
	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "ben", users[0].Username)
	assert.Equal(t, "zoe", users[2].Username)

	_, err = repo.Update(ctx, users[0].ID, store.Row{"role": "root"})
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := repo.Update(ctx, users[0].ID, store.Row{"role": "marketing"})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleMarketing, updated.Role)
}

func TestUserDelete(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	repo := NewUserRepository(st, WithUserIDs(seqIDs("usr")))

	created, err := repo.Create(ctx, ManagedUser{Username: "temp", Name: "Temp", Role: rbac.RoleHR}, "pw")
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, created.ID))
	assert.Equal(t, 0, st.Count("managed_users"))
	_, err = repo.FindByUsername(ctx, "temp")
	assert.ErrorIs(t, err, ErrNotFound)
}

package service

import (
	"context"
	"testing"

	"basmah/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.actions.CreateUser(ctx, admin, NewUser{Email: " New@Example.com ", Password: "s3cretpass", FullName: "Lina"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", p.Email)
	assert.Equal(t, domain.RoleUser, p.Role)
	assert.Equal(t, domain.AccountActive, p.AccountStatus)
	assert.NotEqual(t, "s3cretpass", p.PasswordHash)

	_, err = env.actions.CreateUser(ctx, admin, NewUser{Email: "new@example.com", Password: "another-pass"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	_, err = env.actions.CreateUser(ctx, admin, NewUser{Email: "short@example.com", Password: "123"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.actions.CreateUser(ctx, admin, NewUser{Email: "not-an-email", Password: "long-enough"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	logs := env.mem.AllAuditLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ActionCreateUser, logs[0].Action)
	assert.Equal(t, p.ID, *logs[0].TargetUserID)
}

func TestUpdateUserWhitelist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user("u@example.com", "")
	env.user("taken@example.com", "")

	p, err := env.actions.UpdateUser(ctx, admin, u.ID, UserPatch{FullName: strp("Updated Name"), Phone: strp("+962790000000")}, "")
	require.NoError(t, err)
	assert.Equal(t, "Updated Name", p.FullName)
	assert.Equal(t, "+962790000000", p.Phone)

	_, err = env.actions.UpdateUser(ctx, admin, u.ID, UserPatch{Email: strp("taken@example.com")}, "")
	assert.ErrorIs(t, err, ErrEmailTaken)
	_, err = env.actions.UpdateUser(ctx, admin, u.ID, UserPatch{Role: strp("SUPERUSER")}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.actions.UpdateUser(ctx, admin, u.ID, UserPatch{FullName: strp("Updated Name")}, "")
	assert.ErrorIs(t, err, ErrInvalidInput, "no-op patch")
	_, err = env.actions.UpdateUser(ctx, admin, "ghost", UserPatch{FullName: strp("x")}, "")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{domain.ActionUpdateUser}, env.auditActions())
}

func TestSetAccountStatusActions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user("u@example.com", "")

	for _, st := range []string{domain.AccountBlocked, domain.AccountDeactivated, domain.AccountActive} {
		p, err := env.actions.SetAccountStatus(ctx, admin, u.ID, st, "")
		require.NoError(t, err)
		assert.Equal(t, st, p.AccountStatus)
	}
	_, err := env.actions.SetAccountStatus(ctx, admin, u.ID, "frozen", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, []string{domain.ActionAccountBlocked, domain.ActionAccountDeactivated, domain.ActionAccountActive}, env.auditActions())
}

func TestDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user("u@example.com", "")

	require.NoError(t, env.actions.DeleteAccount(ctx, admin, u.ID, "gdpr"))
	_, err := env.actions.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, env.actions.DeleteAccount(ctx, admin, u.ID, ""), ErrNotFound)
	assert.Equal(t, []string{domain.ActionDeleteAccount}, env.auditActions())
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.actions.CreateUser(ctx, admin, NewUser{Email: "boss@example.com", Password: "correct-horse", Role: domain.RoleAdmin})
	require.NoError(t, err)
	_, err = env.actions.CreateUser(ctx, admin, NewUser{Email: "cust@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	p, err := env.actions.Authenticate(ctx, "Boss@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, p.Role)

	_, err = env.actions.Authenticate(ctx, "boss@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.actions.Authenticate(ctx, "cust@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.actions.SetAccountStatus(ctx, admin, p.ID, domain.AccountBlocked, "")
	require.NoError(t, err)
	_, err = env.actions.Authenticate(ctx, "boss@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

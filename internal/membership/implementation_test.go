// internal/membership/implementation_test.go
package membership

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstack/internal/eventlog"
	"bookstack/internal/postgres/postgrestest"
	"bookstack/internal/shared"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	db := postgrestest.Connect(t)
	return NewService(db, eventlog.New(db))
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, "ada@example.com", "Ada", "long-enough-password")
	require.NoError(t, err)
	assert.Equal(t, RoleMember, member.Role)
	assert.Equal(t, "active", member.Status)

	authed, err := svc.Authenticate(ctx, "ada@example.com", "long-enough-password")
	require.NoError(t, err)
	assert.Equal(t, member.ID, authed.ID)

	_, err = svc.Authenticate(ctx, "ada@example.com", "wrong password")
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "long-enough-password")
	assert.ErrorIs(t, err, shared.ErrForbidden, "unknown emails get the same generic rejection")
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "Ada", "long-enough-password")
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = svc.Register(ctx, "ada@example.com", "Ada", "short")
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ada@example.com", "Ada", "long-enough-password")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ada@example.com", "Other Ada", "another-password")
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestUpdateMemberRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, "ada@example.com", "Ada", "long-enough-password")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateMemberRole(ctx, member.ID, RoleLibrarian))
	got, err := svc.GetMember(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleLibrarian, got.Role)

	err = svc.UpdateMemberRole(ctx, member.ID, Role("owner"))
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	err = svc.UpdateMemberRole(ctx, uuid.New(), RoleAdmin)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetMemberNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetMember(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

// internal/circulation/authz_test.go
package circulation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"bookstack/internal/membership"
)

func TestCanAccess(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()
	record := &LendingRecord{ID: uuid.New(), MemberID: owner}

	assert.True(t, canAccess(membership.Requester{MemberID: owner, Role: membership.RoleMember}, record),
		"members can read their own records")
	assert.False(t, canAccess(membership.Requester{MemberID: other, Role: membership.RoleMember}, record),
		"members cannot read other members' records")
	assert.True(t, canAccess(membership.Requester{MemberID: other, Role: membership.RoleLibrarian}, record))
	assert.True(t, canAccess(membership.Requester{MemberID: other, Role: membership.RoleAdmin}, record))
}

func TestCanQueryMember(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	assert.True(t, canQueryMember(membership.Requester{MemberID: self, Role: membership.RoleMember}, self))
	assert.False(t, canQueryMember(membership.Requester{MemberID: self, Role: membership.RoleMember}, other))
	assert.True(t, canQueryMember(membership.Requester{MemberID: self, Role: membership.RoleLibrarian}, other))
}

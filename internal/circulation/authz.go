// internal/circulation/authz.go
package circulation

import (
	"github.com/google/uuid"

	"bookstack/internal/membership"
)

// canAccess is the single authorization predicate for lending records.
// Every read entry point goes through it, so no endpoint can leak another
// member's records through parameter manipulation.
func canAccess(requester membership.Requester, record *LendingRecord) bool {
	if requester.Role.Privileged() {
		return true
	}
	return record.MemberID == requester.MemberID
}

// canQueryMember reports whether the requester may scope a query to the
// given member's records.
func canQueryMember(requester membership.Requester, memberID uuid.UUID) bool {
	if requester.Role.Privileged() {
		return true
	}
	return memberID == requester.MemberID
}

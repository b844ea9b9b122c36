// internal/membership/domain.go
package membership

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access tier of a member. Roles form an ordered set; "member"
// is the least-privileged tier and only ever sees its own lending records.
type Role string

const (
	RoleMember    Role = "member"
	RoleLibrarian Role = "librarian"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleLibrarian, RoleAdmin:
		return true
	}
	return false
}

// Privileged reports whether r may see records belonging to other members.
func (r Role) Privileged() bool {
	return r == RoleLibrarian || r == RoleAdmin
}

// Member represents a library member.
type Member struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        Role      `json:"role"`
	Status      string    `json:"status"`
	FineBalance int64     `json:"fine_balance"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Active reports whether the member may borrow.
func (m *Member) Active() bool {
	return m.Status == "active"
}

// Requester identifies the authenticated caller of a scoped operation.
// Session issuance lives outside this system; the HTTP layer only carries
// the resolved identity through.
type Requester struct {
	MemberID uuid.UUID
	Role     Role
}

// MemberRegisteredEvent is logged when a new member registers.
type MemberRegisteredEvent struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

// MemberRoleChangedEvent is logged when a member's role is changed.
type MemberRoleChangedEvent struct {
	ID      uuid.UUID `json:"id"`
	NewRole Role      `json:"new_role"`
}

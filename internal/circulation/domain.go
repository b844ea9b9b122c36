// internal/circulation/domain.go
package circulation

import (
	"time"

	"github.com/google/uuid"
)

// RecordStatus is the lifecycle state of a lending record.
type RecordStatus string

const (
	StatusIssued   RecordStatus = "ISSUED"
	StatusOverdue  RecordStatus = "OVERDUE"
	StatusReturned RecordStatus = "RETURNED"
)

// Lending policy. The flat per-day fine and the single-renewal-only-while-
// on-time rule are product decisions preserved as given.
const (
	LoanPeriod       = 14 * 24 * time.Hour
	RenewalExtension = 7 * 24 * time.Hour
	MaxRenewals      = 1
	FinePerDay       = 10
)

// LendingRecord is one borrow transaction from issue to return. Records are
// append-only history: they are never deleted, and a copy has at most one
// record in ISSUED or OVERDUE at any time.
type LendingRecord struct {
	ID         uuid.UUID    `json:"id" db:"id"`
	MemberID   uuid.UUID    `json:"member_id" db:"member_id"`
	CopyID     uuid.UUID    `json:"copy_id" db:"copy_id"`
	ItemID     uuid.UUID    `json:"item_id" db:"item_id"`
	IssueDate  time.Time    `json:"issue_date" db:"issue_date"`
	DueDate    time.Time    `json:"due_date" db:"due_date"`
	ReturnDate *time.Time   `json:"return_date,omitempty" db:"return_date"`
	Status     RecordStatus `json:"status" db:"status"`
	RenewCount int          `json:"renew_count" db:"renew_count"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}

// Open reports whether the record still holds its copy.
func (r *LendingRecord) Open() bool {
	return r.Status == StatusIssued || r.Status == StatusOverdue
}

// ReturnReceipt is the result of returning a copy.
type ReturnReceipt struct {
	Record      *LendingRecord `json:"record"`
	OverdueDays int            `json:"overdue_days"`
	Fine        int64          `json:"fine"`
}

// OverdueDays is the number of whole days a loan due at due is late as of
// now. On-time and early returns yield zero.
func OverdueDays(due, now time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(now.Sub(due) / (24 * time.Hour))
}

// FineFor converts overdue days to a fine. Flat rate, no compounding,
// no cap.
func FineFor(overdueDays int) int64 {
	if overdueDays <= 0 {
		return 0
	}
	return int64(overdueDays) * FinePerDay
}

// ItemIssuedEvent is logged when a copy is issued.
type ItemIssuedEvent struct {
	RecordID uuid.UUID `json:"record_id"`
	MemberID uuid.UUID `json:"member_id"`
	CopyID   uuid.UUID `json:"copy_id"`
	ItemID   uuid.UUID `json:"item_id"`
	DueDate  time.Time `json:"due_date"`
}

// ItemReturnedEvent is logged when a copy is returned.
type ItemReturnedEvent struct {
	RecordID    uuid.UUID `json:"record_id"`
	MemberID    uuid.UUID `json:"member_id"`
	CopyID      uuid.UUID `json:"copy_id"`
	ItemID      uuid.UUID `json:"item_id"`
	ReturnDate  time.Time `json:"return_date"`
	OverdueDays int       `json:"overdue_days"`
	Fine        int64     `json:"fine"`
}

// LoanRenewedEvent is logged when a loan's due date is extended.
type LoanRenewedEvent struct {
	RecordID   uuid.UUID `json:"record_id"`
	NewDueDate time.Time `json:"new_due_date"`
	RenewCount int       `json:"renew_count"`
}

// RecordOverdueEvent is logged when the sweeper reclassifies a record.
type RecordOverdueEvent struct {
	RecordID uuid.UUID `json:"record_id"`
	DueDate  time.Time `json:"due_date"`
}

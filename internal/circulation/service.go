// internal/circulation/service.go
package circulation

import (
	"context"

	"github.com/google/uuid"

	"bookstack/internal/membership"
)

// Service defines the interface for the circulation service. Issue, Return,
// Renew and SweepOverdue each run as one serializable transaction; the read
// operations apply the ownership filter uniformly for every entry point.
type Service interface {
	Issue(ctx context.Context, memberID, copyID uuid.UUID) (*LendingRecord, error)
	Return(ctx context.Context, recordID uuid.UUID) (*ReturnReceipt, error)
	Renew(ctx context.Context, recordID uuid.UUID) (*LendingRecord, error)
	SweepOverdue(ctx context.Context) ([]LendingRecord, error)

	ListRecords(ctx context.Context, requester membership.Requester) ([]LendingRecord, error)
	GetRecord(ctx context.Context, id uuid.UUID, requester membership.Requester) (*LendingRecord, error)
	ListActiveByMember(ctx context.Context, memberID uuid.UUID, requester membership.Requester) ([]LendingRecord, error)
	ListOverdue(ctx context.Context, requester membership.Requester) ([]LendingRecord, error)
}

// internal/circulation/query.go
package circulation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"bookstack/internal/membership"
	"bookstack/internal/shared"
)

var pgDialect = goqu.Dialect("postgres")

var recordColumns = []interface{}{
	"id", "member_id", "copy_id", "item_id", "issue_date", "due_date",
	"return_date", "status", "renew_count", "created_at", "updated_at",
}

// ListRecords returns lending records visible to the requester, newest
// issue first. Members only ever see their own.
func (s *service) ListRecords(ctx context.Context, requester membership.Requester) ([]LendingRecord, error) {
	ds := pgDialect.From("lending_records").
		Select(recordColumns...).
		Order(goqu.I("issue_date").Desc())

	if !requester.Role.Privileged() {
		ds = ds.Where(goqu.C("member_id").Eq(requester.MemberID.String()))
	}

	return s.selectRecords(ctx, ds)
}

// GetRecord returns one record by ID, applying the ownership filter.
func (s *service) GetRecord(ctx context.Context, id uuid.UUID, requester membership.Requester) (*LendingRecord, error) {
	record := &LendingRecord{}
	err := s.dbx.GetContext(ctx, record, `
		SELECT id, member_id, copy_id, item_id, issue_date, due_date, return_date, status, renew_count, created_at, updated_at
		FROM lending_records
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.Errorf("NOT_FOUND", "lending record %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}

	if !canAccess(requester, record) {
		return nil, shared.NewError("FORBIDDEN", "record belongs to another member")
	}
	return record, nil
}

// ListActiveByMember returns the open (ISSUED or OVERDUE) records of one
// member. A member may only query themselves.
func (s *service) ListActiveByMember(ctx context.Context, memberID uuid.UUID, requester membership.Requester) ([]LendingRecord, error) {
	if !canQueryMember(requester, memberID) {
		return nil, shared.NewError("FORBIDDEN", "cannot query another member's records")
	}

	ds := pgDialect.From("lending_records").
		Select(recordColumns...).
		Where(
			goqu.C("member_id").Eq(memberID.String()),
			goqu.C("status").In(string(StatusIssued), string(StatusOverdue)),
		).
		Order(goqu.I("issue_date").Desc())

	return s.selectRecords(ctx, ds)
}

// ListOverdue returns all OVERDUE records. Privileged roles only.
func (s *service) ListOverdue(ctx context.Context, requester membership.Requester) ([]LendingRecord, error) {
	if !requester.Role.Privileged() {
		return nil, shared.NewError("FORBIDDEN", "librarian or admin role required")
	}

	ds := pgDialect.From("lending_records").
		Select(recordColumns...).
		Where(goqu.C("status").Eq(string(StatusOverdue))).
		Order(goqu.I("due_date").Asc())

	return s.selectRecords(ctx, ds)
}

func (s *service) selectRecords(ctx context.Context, ds *goqu.SelectDataset) ([]LendingRecord, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	records := []LendingRecord{}
	if err := s.dbx.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	return records, nil
}

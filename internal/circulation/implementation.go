// internal/circulation/implementation.go
package circulation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"bookstack/internal/eventlog"
	"bookstack/internal/postgres"
	"bookstack/internal/shared"
)

// service implements the Service interface.
type service struct {
	db     *sql.DB
	dbx    *sqlx.DB
	events *eventlog.Log
	now    func() time.Time
	tracer trace.Tracer

	issuedTotal   metric.Int64Counter
	returnedTotal metric.Int64Counter
	finesTotal    metric.Int64Counter
}

// NewService creates a new circulation service instance.
func NewService(db *sql.DB, events *eventlog.Log) Service {
	meter := otel.Meter("bookstack/circulation")
	issued, _ := meter.Int64Counter("circulation.issued.total")
	returned, _ := meter.Int64Counter("circulation.returned.total")
	fines, _ := meter.Int64Counter("circulation.fines.assessed")

	return &service{
		db:            db,
		dbx:           sqlx.NewDb(db, "postgres"),
		events:        events,
		now:           time.Now,
		tracer:        otel.Tracer("bookstack/circulation"),
		issuedTotal:   issued,
		returnedTotal: returned,
		finesTotal:    fines,
	}
}

// Issue lends an available copy to a member. Precondition checks, the copy
// transition and the counter decrement share one serializable transaction,
// so of two concurrent issues against the same copy exactly one commits.
func (s *service) Issue(ctx context.Context, memberID, copyID uuid.UUID) (*LendingRecord, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.issue",
		trace.WithAttributes(
			attribute.String("member.id", memberID.String()),
			attribute.String("copy.id", copyID.String()),
		),
	)
	defer span.End()

	now := s.now().UTC()
	record := &LendingRecord{
		ID:         uuid.New(),
		MemberID:   memberID,
		CopyID:     copyID,
		IssueDate:  now,
		DueDate:    now.Add(LoanPeriod),
		Status:     StatusIssued,
		RenewCount: 0,
	}

	err := postgres.InTx(ctx, s.db, func(tx *sql.Tx) error {
		var memberStatus string
		err := tx.QueryRowContext(ctx, `SELECT status FROM members WHERE id = $1`, memberID).Scan(&memberStatus)
		if errors.Is(err, sql.ErrNoRows) {
			return shared.Errorf("NOT_FOUND", "member %s not found", memberID)
		}
		if err != nil {
			return fmt.Errorf("get member: %w", err)
		}
		if memberStatus != "active" {
			return shared.Errorf("PRECONDITION_FAILED", "member %s is not active", memberID)
		}

		// Resolve the owning item before taking locks; locks are always
		// taken item first, then copy, so concurrent writers on one item
		// queue up instead of deadlocking.
		var itemID uuid.UUID
		err = tx.QueryRowContext(ctx, `SELECT item_id FROM copies WHERE id = $1`, copyID).Scan(&itemID)
		if errors.Is(err, sql.ErrNoRows) {
			return shared.Errorf("NOT_FOUND", "copy %s not found", copyID)
		}
		if err != nil {
			return fmt.Errorf("get copy: %w", err)
		}
		record.ItemID = itemID

		var (
			available  int
			itemStatus string
		)
		err = tx.QueryRowContext(ctx, `
			SELECT available_copies, status FROM items WHERE id = $1 FOR UPDATE
		`, itemID).Scan(&available, &itemStatus)
		if err != nil {
			return fmt.Errorf("lock item: %w", err)
		}
		if itemStatus != "active" {
			return shared.Errorf("PRECONDITION_FAILED", "item %s is retired", itemID)
		}
		// Defensive double-check against aggregate drift; copy status is
		// the ground truth checked next.
		if available <= 0 {
			return shared.Errorf("PRECONDITION_FAILED", "no available copies of item %s", itemID)
		}

		var copyStatus string
		err = tx.QueryRowContext(ctx, `
			SELECT status FROM copies WHERE id = $1 FOR UPDATE
		`, copyID).Scan(&copyStatus)
		if err != nil {
			return fmt.Errorf("lock copy: %w", err)
		}
		if copyStatus != "AVAILABLE" {
			return shared.Errorf("PRECONDITION_FAILED", "copy %s is not available", copyID)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO lending_records (id, member_id, copy_id, item_id, issue_date, due_date, status, renew_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, record.ID, record.MemberID, record.CopyID, record.ItemID,
			record.IssueDate, record.DueDate, record.Status, record.RenewCount); err != nil {
			return fmt.Errorf("insert lending record: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE copies SET status = 'ISSUED' WHERE id = $1
		`, copyID); err != nil {
			return fmt.Errorf("mark copy issued: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE items SET available_copies = available_copies - 1, updated_at = NOW()
			WHERE id = $1
		`, itemID); err != nil {
			return fmt.Errorf("decrement available: %w", err)
		}

		return s.events.Append(ctx, tx, record.ID, "lending_record", "ItemIssued", ItemIssuedEvent{
			RecordID: record.ID,
			MemberID: record.MemberID,
			CopyID:   record.CopyID,
			ItemID:   record.ItemID,
			DueDate:  record.DueDate,
		})
	})
	if err != nil {
		return nil, err
	}

	s.issuedTotal.Add(ctx, 1)
	return record, nil
}

// Return closes a lending record, frees the copy and assesses any overdue
// fine onto the member's balance, all in one transaction.
func (s *service) Return(ctx context.Context, recordID uuid.UUID) (*ReturnReceipt, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.return",
		trace.WithAttributes(attribute.String("record.id", recordID.String())),
	)
	defer span.End()

	now := s.now().UTC()
	receipt := &ReturnReceipt{}

	err := postgres.InTx(ctx, s.db, func(tx *sql.Tx) error {
		record, err := s.lockRecord(ctx, tx, recordID)
		if err != nil {
			return err
		}
		if record.Status == StatusReturned {
			return shared.Errorf("PRECONDITION_FAILED", "record %s is already returned", recordID)
		}

		if _, err := tx.ExecContext(ctx, `
			SELECT id FROM items WHERE id = $1 FOR UPDATE
		`, record.ItemID); err != nil {
			return fmt.Errorf("lock item: %w", err)
		}

		overdueDays := OverdueDays(record.DueDate, now)
		fine := FineFor(overdueDays)

		if _, err := tx.ExecContext(ctx, `
			UPDATE lending_records
			SET status = 'RETURNED', return_date = $1, updated_at = NOW()
			WHERE id = $2
		`, now, recordID); err != nil {
			return fmt.Errorf("close record: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE copies SET status = 'AVAILABLE' WHERE id = $1 AND status = 'ISSUED'
		`, record.CopyID)
		if err != nil {
			return fmt.Errorf("free copy: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("copy %s for open record %s is not in ISSUED state", record.CopyID, recordID)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE items SET available_copies = available_copies + 1, updated_at = NOW()
			WHERE id = $1
		`, record.ItemID); err != nil {
			return fmt.Errorf("increment available: %w", err)
		}

		if fine > 0 {
			if _, err := tx.ExecContext(ctx, `
				UPDATE members SET fine_balance = fine_balance + $1, updated_at = NOW()
				WHERE id = $2
			`, fine, record.MemberID); err != nil {
				return fmt.Errorf("assess fine: %w", err)
			}
		}

		record.Status = StatusReturned
		record.ReturnDate = &now
		receipt.Record = record
		receipt.OverdueDays = overdueDays
		receipt.Fine = fine

		return s.events.Append(ctx, tx, record.ID, "lending_record", "ItemReturned", ItemReturnedEvent{
			RecordID:    record.ID,
			MemberID:    record.MemberID,
			CopyID:      record.CopyID,
			ItemID:      record.ItemID,
			ReturnDate:  now,
			OverdueDays: overdueDays,
			Fine:        fine,
		})
	})
	if err != nil {
		return nil, err
	}

	s.returnedTotal.Add(ctx, 1)
	if receipt.Fine > 0 {
		s.finesTotal.Add(ctx, receipt.Fine)
	}
	return receipt, nil
}

// Renew extends an on-time loan by one week, at most once. Overdue loans
// cannot be renewed.
func (s *service) Renew(ctx context.Context, recordID uuid.UUID) (*LendingRecord, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.renew",
		trace.WithAttributes(attribute.String("record.id", recordID.String())),
	)
	defer span.End()

	var record *LendingRecord
	err := postgres.InTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		record, err = s.lockRecord(ctx, tx, recordID)
		if err != nil {
			return err
		}
		if record.Status != StatusIssued {
			return shared.Errorf("PRECONDITION_FAILED", "record %s is %s, only on-time loans can be renewed", recordID, record.Status)
		}
		if record.RenewCount >= MaxRenewals {
			return shared.Errorf("PRECONDITION_FAILED", "record %s has already been renewed", recordID)
		}

		record.DueDate = record.DueDate.Add(RenewalExtension)
		record.RenewCount++

		if _, err := tx.ExecContext(ctx, `
			UPDATE lending_records
			SET due_date = $1, renew_count = $2, updated_at = NOW()
			WHERE id = $3
		`, record.DueDate, record.RenewCount, recordID); err != nil {
			return fmt.Errorf("renew record: %w", err)
		}

		return s.events.Append(ctx, tx, record.ID, "lending_record", "LoanRenewed", LoanRenewedEvent{
			RecordID:   record.ID,
			NewDueDate: record.DueDate,
			RenewCount: record.RenewCount,
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// SweepOverdue reclassifies every ISSUED record past its due date to
// OVERDUE and returns the set as it was before the transition. A second
// sweep with no new lapses returns an empty set.
func (s *service) SweepOverdue(ctx context.Context) ([]LendingRecord, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.sweep_overdue")
	defer span.End()

	now := s.now().UTC()
	var swept []LendingRecord

	err := postgres.InTx(ctx, s.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, member_id, copy_id, item_id, issue_date, due_date, return_date, status, renew_count, created_at, updated_at
			FROM lending_records
			WHERE status = 'ISSUED' AND due_date < $1
			ORDER BY due_date
			FOR UPDATE
		`, now)
		if err != nil {
			return fmt.Errorf("select lapsed records: %w", err)
		}
		swept, err = scanRecords(rows)
		if err != nil {
			return err
		}
		if len(swept) == 0 {
			return nil
		}

		for i := range swept {
			if _, err := tx.ExecContext(ctx, `
				UPDATE lending_records SET status = 'OVERDUE', updated_at = NOW() WHERE id = $1
			`, swept[i].ID); err != nil {
				return fmt.Errorf("mark record overdue: %w", err)
			}
			if err := s.events.Append(ctx, tx, swept[i].ID, "lending_record", "RecordOverdue", RecordOverdueEvent{
				RecordID: swept[i].ID,
				DueDate:  swept[i].DueDate,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("records.swept", len(swept)))
	return swept, nil
}

// lockRecord loads a lending record FOR UPDATE.
func (s *service) lockRecord(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*LendingRecord, error) {
	record := &LendingRecord{}
	err := tx.QueryRowContext(ctx, `
		SELECT id, member_id, copy_id, item_id, issue_date, due_date, return_date, status, renew_count, created_at, updated_at
		FROM lending_records
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&record.ID, &record.MemberID, &record.CopyID, &record.ItemID,
		&record.IssueDate, &record.DueDate, &record.ReturnDate,
		&record.Status, &record.RenewCount, &record.CreatedAt, &record.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.Errorf("NOT_FOUND", "lending record %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock record: %w", err)
	}
	return record, nil
}

func scanRecords(rows *sql.Rows) ([]LendingRecord, error) {
	defer rows.Close()
	var records []LendingRecord
	for rows.Next() {
		var record LendingRecord
		if err := rows.Scan(
			&record.ID, &record.MemberID, &record.CopyID, &record.ItemID,
			&record.IssueDate, &record.DueDate, &record.ReturnDate,
			&record.Status, &record.RenewCount, &record.CreatedAt, &record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// internal/membership/implementation.go
package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/time/rate"

	"bookstack/internal/eventlog"
	"bookstack/internal/postgres"
	"bookstack/internal/shared"
)

// service implements the Service interface.
type service struct {
	db       *sql.DB
	events   *eventlog.Log
	registry *rate.Limiter
	logins   *rate.Limiter
}

// NewService creates a new membership service instance.
func NewService(db *sql.DB, events *eventlog.Log) Service {
	return &service{
		db:       db,
		events:   events,
		registry: rate.NewLimiter(rate.Every(time.Minute/5), 5),
		logins:   rate.NewLimiter(rate.Every(time.Minute/30), 30),
	}
}

// Register creates a new member with the least-privileged role.
func (s *service) Register(ctx context.Context, email, name, password string) (*Member, error) {
	if !s.registry.Allow() {
		return nil, fmt.Errorf("%w: registration rate limit exceeded", shared.ErrTransient)
	}
	if email == "" || name == "" || len(password) < 8 {
		return nil, shared.Errorf("INVALID_ARGUMENT", "email, name and a password of at least 8 characters are required")
	}

	passwordHash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	member := &Member{
		ID:     uuid.New(),
		Email:  email,
		Name:   name,
		Role:   RoleMember,
		Status: "active",
	}

	err = postgres.InTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO members (id, email, name, role, status)
			VALUES ($1, $2, $3, $4, $5)
		`, member.ID, member.Email, member.Name, member.Role, member.Status)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return shared.Errorf("INVALID_ARGUMENT", "email %s is already registered", email)
			}
			return fmt.Errorf("insert member: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO credentials (member_id, password_hash, salt)
			VALUES ($1, $2, $3)
		`, member.ID, passwordHash, salt)
		if err != nil {
			return fmt.Errorf("insert credentials: %w", err)
		}

		return s.events.Append(ctx, tx, member.ID, "member", "MemberRegistered", MemberRegisteredEvent{
			ID:    member.ID,
			Email: member.Email,
			Name:  member.Name,
		})
	})
	if err != nil {
		return nil, err
	}

	return member, nil
}

// Authenticate verifies a member's credentials and returns the member.
func (s *service) Authenticate(ctx context.Context, email, password string) (*Member, error) {
	if !s.logins.Allow() {
		return nil, fmt.Errorf("%w: login rate limit exceeded", shared.ErrTransient)
	}

	member, err := s.getMemberByEmail(ctx, email)
	if err != nil {
		return nil, shared.NewError("FORBIDDEN", "invalid credentials")
	}

	var hash, salt string
	err = s.db.QueryRowContext(ctx, `
		SELECT password_hash, salt FROM credentials WHERE member_id = $1
	`, member.ID).Scan(&hash, &salt)
	if err != nil {
		return nil, shared.NewError("FORBIDDEN", "invalid credentials")
	}

	ok, err := verifyPassword(password, salt, hash)
	if err != nil || !ok {
		return nil, shared.NewError("FORBIDDEN", "invalid credentials")
	}

	return member, nil
}

func (s *service) getMemberByEmail(ctx context.Context, email string) (*Member, error) {
	member := &Member{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, role, status, fine_balance, created_at, updated_at
		FROM members
		WHERE email = $1
	`, email).Scan(
		&member.ID, &member.Email, &member.Name, &member.Role,
		&member.Status, &member.FineBalance, &member.CreatedAt, &member.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return member, nil
}

// GetMember retrieves a member by their ID.
func (s *service) GetMember(ctx context.Context, id uuid.UUID) (*Member, error) {
	member := &Member{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, role, status, fine_balance, created_at, updated_at
		FROM members
		WHERE id = $1
	`, id).Scan(
		&member.ID, &member.Email, &member.Name, &member.Role,
		&member.Status, &member.FineBalance, &member.CreatedAt, &member.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.Errorf("NOT_FOUND", "member %s not found", id)
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return member, nil
}

// UpdateMemberRole changes a member's access tier.
func (s *service) UpdateMemberRole(ctx context.Context, id uuid.UUID, newRole Role) error {
	if !newRole.Valid() {
		return shared.Errorf("INVALID_ARGUMENT", "unknown role %q", newRole)
	}

	return postgres.InTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE members SET role = $1, updated_at = NOW() WHERE id = $2
		`, newRole, id)
		if err != nil {
			return fmt.Errorf("update role: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return shared.Errorf("NOT_FOUND", "member %s not found", id)
		}

		return s.events.Append(ctx, tx, id, "member", "MemberRoleChanged", MemberRoleChangedEvent{
			ID:      id,
			NewRole: newRole,
		})
	})
}

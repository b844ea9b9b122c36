// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the catalog service.
type Service interface {
	AddItem(ctx context.Context, isbn, title, author string, copies int) (*Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	Search(ctx context.Context, query string) ([]*Item, error)
	RetireItem(ctx context.Context, id uuid.UUID) error

	AddCopies(ctx context.Context, itemID uuid.UUID, count int) (*Stats, error)
	RemoveCopies(ctx context.Context, itemID uuid.UUID, count int) (*Stats, error)
	GetStats(ctx context.Context, itemID uuid.UUID) (*Stats, error)
	ReportLost(ctx context.Context, copyID uuid.UUID) error
}

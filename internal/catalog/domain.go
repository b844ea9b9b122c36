// internal/catalog/domain.go
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// CopyStatus is the state of one physical copy.
type CopyStatus string

const (
	CopyAvailable CopyStatus = "AVAILABLE"
	CopyIssued    CopyStatus = "ISSUED"
	CopyLost      CopyStatus = "LOST"
)

// Item represents a book or other catalog work. TotalCopies counts every
// copy ever provisioned minus removed ones; AvailableCopies mirrors the
// live count of AVAILABLE copies and is only ever mutated in the same
// transaction as the copy rows it summarizes.
type Item struct {
	ID              uuid.UUID `json:"id"`
	ISBN            string    `json:"isbn"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Copy is one lendable unit of an item.
type Copy struct {
	ID        uuid.UUID  `json:"id"`
	ItemID    uuid.UUID  `json:"item_id"`
	Status    CopyStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// Stats is the per-item inventory summary. IssuedCopies is derived from
// open lending records at read time, never stored.
type Stats struct {
	TotalCopies     int `json:"total_copies"`
	AvailableCopies int `json:"available_copies"`
	IssuedCopies    int `json:"issued_copies"`
}

// Bulk copy mutations are capped per request.
const (
	MinCopiesPerRequest = 1
	MaxCopiesPerRequest = 100
)

// ItemAddedEvent is logged when a new item enters the catalog.
type ItemAddedEvent struct {
	ID          uuid.UUID `json:"id"`
	ISBN        string    `json:"isbn"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	TotalCopies int       `json:"total_copies"`
}

// CopiesAddedEvent is logged when copies are provisioned.
type CopiesAddedEvent struct {
	ItemID  uuid.UUID   `json:"item_id"`
	CopyIDs []uuid.UUID `json:"copy_ids"`
}

// CopiesRemovedEvent is logged when copies are retired from circulation.
type CopiesRemovedEvent struct {
	ItemID  uuid.UUID   `json:"item_id"`
	CopyIDs []uuid.UUID `json:"copy_ids"`
}

// CopyLostEvent is logged when a copy is written off as lost.
type CopyLostEvent struct {
	ItemID uuid.UUID `json:"item_id"`
	CopyID uuid.UUID `json:"copy_id"`
}

// ItemRetiredEvent is logged when an item is retired from the catalog.
type ItemRetiredEvent struct {
	ID uuid.UUID `json:"id"`
}

// Package store provides the entity snapshot storage interface and its
// SQLite implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rcliao/entity-codec/internal/codec"
	"github.com/rcliao/entity-codec/internal/model"
)

// ErrNotFound is returned when a class or entity does not exist.
var ErrNotFound = errors.New("not found")

// ClassSummary is a stored class with its property count.
type ClassSummary struct {
	ID         uint64    `json:"id"`
	Name       string    `json:"name"`
	Properties int       `json:"properties"`
	Entities   int       `json:"entities"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListParams holds parameters for listing entities.
type ListParams struct {
	ClassID uint64
	Limit   int
}

// QueueParams holds parameters for queueing an encoded update.
type QueueParams struct {
	ClassID  uint64
	EntityID uint64
	Update   codec.Update
}

// QueuedUpdate is an encoded entity update waiting in the outbox for
// submission.
type QueuedUpdate struct {
	ID          string             `json:"id"`
	ClassID     uint64             `json:"class_id"`
	EntityID    uint64             `json:"entity_id"`
	Assignments []model.Assignment `json:"assignments"`
	Diagnostics []string           `json:"diagnostics,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Store defines the entity snapshot storage interface.
type Store interface {
	// PutClass stores or replaces a class schema.
	PutClass(ctx context.Context, schema *model.ClassSchema) error

	// GetClass returns a class schema by id.
	GetClass(ctx context.Context, id uint64) (*model.ClassSchema, error)

	// ListClasses lists stored classes ordered by id.
	ListClasses(ctx context.Context) ([]ClassSummary, error)

	// PutEntity stores or replaces a raw entity snapshot.
	PutEntity(ctx context.Context, e *model.RawEntity) error

	// GetEntity returns a raw entity snapshot.
	GetEntity(ctx context.Context, classID, id uint64) (*model.RawEntity, error)

	// ListEntities lists raw entities of a class ordered by id.
	ListEntities(ctx context.Context, p ListParams) ([]*model.RawEntity, error)

	// QueueUpdate appends an encoded update to the outbox.
	QueueUpdate(ctx context.Context, p QueueParams) (*QueuedUpdate, error)

	// ListUpdates lists queued updates, oldest first. A zero classID lists
	// every class.
	ListUpdates(ctx context.Context, classID uint64) ([]QueuedUpdate, error)

	// Close closes the store.
	Close() error
}

// Package storage defines the persistence interface for lost & found items.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/otoshimono/internal/models"
)

// ErrNotFound is returned (wrapped) when an item does not exist.
var ErrNotFound = errors.New("item not found")

// Storage defines item persistence operations.
type Storage interface {
	// SaveItem inserts the item or replaces an existing one with the same ID.
	// CreatedAt of an existing item is preserved.
	SaveItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id string) (*models.Item, error)
	DeleteItem(ctx context.Context, id string) error
	// ListItems returns items newest first. An empty kind lists both kinds.
	ListItems(ctx context.Context, kind models.Kind, offset, limit int) ([]*models.Item, error)

	// Stats
	CountItems(ctx context.Context, kind models.Kind) (int64, error)
	CountPlaceholders(ctx context.Context) (int64, error)

	Close() error
}

package usecase

import (
	"context"

	"item-batch-service/internal/domain/entity"
)

// ItemRepository defines the interface for item data access.
// Implementations must be safe for concurrent use: the batch run calls
// FindByID and Save from several goroutines at once.
type ItemRepository interface {
	// FindAll retrieves all items
	FindAll(ctx context.Context) ([]*entity.Item, error)

	// FindAllIDs retrieves every item ID in ascending order
	FindAllIDs(ctx context.Context) ([]int64, error)

	// FindByID retrieves an item by ID.
	// It returns domainErrors.ErrItemNotFound when the item does not exist.
	FindByID(ctx context.Context, id int64) (*entity.Item, error)

	// Save inserts the item when its ID is zero and updates it otherwise,
	// returning the persisted representation
	Save(ctx context.Context, item *entity.Item) (*entity.Item, error)

	// Delete deletes an item by ID
	Delete(ctx context.Context, id int64) error
}

package port

import (
	"context"

	"github.com/storefront-bot/storefront/internal/core/domain"
)

type CatalogRepository interface {
	// ListItems returns every catalog item ordered by id
	ListItems(ctx context.Context) ([]domain.Item, error)

	// GetItem returns domain.ErrItemNotFound when the item does not exist
	GetItem(ctx context.Context, id int64) (domain.Item, error)

	// CreateItem inserts an item and returns it with its generated id
	CreateItem(ctx context.Context, item domain.Item) (domain.Item, error)

	// RemoveItem deletes the item and every cart line referencing it
	RemoveItem(ctx context.Context, id int64) error
}

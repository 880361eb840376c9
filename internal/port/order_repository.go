package port

import (
	"context"

	"github.com/storefront-bot/storefront/internal/core/domain"
)

type OrderRepository interface {
	// CreateOrder persists a paid order and clears the buyer's cart atomically
	CreateOrder(ctx context.Context, order domain.Order) error

	// ListOrders returns the user's orders, newest first
	ListOrders(ctx context.Context, userID int64) ([]domain.Order, error)
}

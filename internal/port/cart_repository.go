package port

import (
	"context"

	"github.com/storefront-bot/storefront/internal/core/domain"
)

type CartRepository interface {
	// AddToCart increments an existing line or creates it
	AddToCart(ctx context.Context, userID, itemID int64, quantity int) error

	// RemoveFromCart decrements a line, deleting it once it reaches zero.
	// Returns the remaining quantity.
	RemoveFromCart(ctx context.Context, userID, itemID int64, quantity int) (int, error)

	// GetCartLine returns domain.ErrCartLineNotFound when the user has no such line
	GetCartLine(ctx context.Context, userID, itemID int64) (domain.CartLine, error)

	// ListCart returns the user's lines joined with their items, ordered by item id
	ListCart(ctx context.Context, userID int64) ([]domain.CartEntry, error)

	// ClearCart drops every line of the user
	ClearCart(ctx context.Context, userID int64) error
}

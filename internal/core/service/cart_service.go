package service

import (
	"context"

	"github.com/storefront-bot/storefront/internal/core/domain"
	"github.com/storefront-bot/storefront/internal/port"
)

type CartService struct {
	repo     port.CartRepository
	currency string
}

func NewCartService(repo port.CartRepository, currency string) *CartService {
	return &CartService{repo: repo, currency: currency}
}

// Add accumulates: adding the same item twice sums the quantities.
func (s *CartService) Add(ctx context.Context, userID, itemID int64, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	return s.repo.AddToCart(ctx, userID, itemID, quantity)
}

// Remove takes up to quantity units off a line. Removing at least the current
// quantity deletes the line; the remaining quantity is returned.
func (s *CartService) Remove(ctx context.Context, userID, itemID int64, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	return s.repo.RemoveFromCart(ctx, userID, itemID, quantity)
}

func (s *CartService) Line(ctx context.Context, userID, itemID int64) (domain.CartLine, error) {
	return s.repo.GetCartLine(ctx, userID, itemID)
}

func (s *CartService) List(ctx context.Context, userID int64) ([]domain.CartEntry, error) {
	return s.repo.ListCart(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID int64) error {
	return s.repo.ClearCart(ctx, userID)
}

func (s *CartService) Total(ctx context.Context, userID int64) (domain.Money, error) {
	entries, err := s.repo.ListCart(ctx, userID)
	if err != nil {
		return domain.Money{}, err
	}
	return domain.Money{Currency: s.currency, Amount: domain.CartTotal(entries)}, nil
}

func (s *CartService) Currency() string {
	return s.currency
}

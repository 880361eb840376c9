package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/storefront-bot/storefront/internal/core/domain"
	"github.com/storefront-bot/storefront/internal/port"
)

type CatalogService struct {
	repo port.CatalogRepository
}

func NewCatalogService(repo port.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) ListItems(ctx context.Context) ([]domain.Item, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *CatalogService) GetItem(ctx context.Context, id int64) (domain.Item, error) {
	if id <= 0 {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return s.repo.GetItem(ctx, id)
}

func (s *CatalogService) CreateItem(ctx context.Context, name, description string, price int64) (domain.Item, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" || price < 0 {
		return domain.Item{}, ErrInvalidInput
	}

	item, err := s.repo.CreateItem(ctx, domain.Item{
		Name:        name,
		Description: description,
		Price:       price,
	})
	if err != nil {
		return domain.Item{}, fmt.Errorf("create item: %w", err)
	}
	return item, nil
}

// RemoveItem deletes an item together with the cart lines that reference it.
func (s *CatalogService) RemoveItem(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.ErrItemNotFound
	}
	return s.repo.RemoveItem(ctx, id)
}

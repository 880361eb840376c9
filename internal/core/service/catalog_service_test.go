package service

import (
	"context"
	"errors"
	"testing"

	"github.com/storefront-bot/storefront/internal/core/domain"
)

func TestCatalogService_CreateItem(t *testing.T) {
	svc := NewCatalogService(newMockStore())
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, "  Classic ", " Beef patty ", 500)
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	if item.ID == 0 || item.Name != "Classic" || item.Description != "Beef patty" {
		t.Errorf("unexpected item %+v", item)
	}

	for _, tc := range []struct {
		name  string
		price int64
	}{
		{"", 100},
		{"   ", 100},
		{"Negative", -1},
	} {
		if _, err := svc.CreateItem(ctx, tc.name, "", tc.price); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("CreateItem(%q, %d) = %v, want ErrInvalidInput", tc.name, tc.price, err)
		}
	}
}

func TestCatalogService_GetAndRemove(t *testing.T) {
	store := newMockStore(domain.Item{ID: 1, Name: "Classic", Price: 500})
	svc := NewCatalogService(store)
	ctx := context.Background()

	if _, err := svc.GetItem(ctx, 0); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("GetItem(0) = %v", err)
	}
	if _, err := svc.GetItem(ctx, 1); err != nil {
		t.Errorf("GetItem(1) = %v", err)
	}

	store.AddToCart(ctx, userA, 1, 3)
	if err := svc.RemoveItem(ctx, 1); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if _, ok := store.quantity(userA, 1); ok {
		t.Error("cart line survived item removal")
	}
	if err := svc.RemoveItem(ctx, 1); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("second RemoveItem = %v, want ErrItemNotFound", err)
	}
}

func TestCatalogService_ListPropagatesStoreErrors(t *testing.T) {
	store := newMockStore()
	store.setFail(true)
	svc := NewCatalogService(store)

	if _, err := svc.ListItems(context.Background()); !errors.Is(err, errStoreDown) {
		t.Errorf("ListItems = %v, want wrapped store error", err)
	}
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/storefront-bot/storefront/internal/core/domain"
)

func newCheckoutFixture(t *testing.T) (*mockStore, *CheckoutService) {
	t.Helper()
	store := newMockStore(
		domain.Item{ID: 1, Name: "Classic", Price: 500},
		domain.Item{ID: 2, Name: "Cheese", Price: 300},
	)
	cart := NewCartService(store, "RUB")
	svc := NewCheckoutService(cart, CheckoutConfig{
		Currency: "RUB",
		ShippingOptions: []domain.ShippingOption{
			{ID: "pickup", Title: "Pickup", Price: 0},
			{ID: "courier", Title: "Courier", Price: 20000},
		},
	})
	return store, svc
}

func TestCheckoutService_CreateInvoice(t *testing.T) {
	store, svc := newCheckoutFixture(t)
	ctx := context.Background()

	if _, err := svc.CreateInvoice(ctx, userA); !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}

	store.AddToCart(ctx, userA, 1, 2)
	store.AddToCart(ctx, userA, 2, 1)

	inv, err := svc.CreateInvoice(ctx, userA)
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	if len(inv.Prices) != 1 || inv.Prices[0].Amount != 1300 {
		t.Errorf("prices = %+v, want a single 1300 total", inv.Prices)
	}
	if inv.Title != "Order payment" || inv.Description == "" {
		t.Errorf("default title/description not applied: %q / %q", inv.Title, inv.Description)
	}
	if !inv.Flexible {
		t.Error("invoice should request shipping options")
	}
	if !strings.HasPrefix(inv.Payload, "order:") {
		t.Errorf("payload = %q", inv.Payload)
	}

	other, _ := svc.CreateInvoice(ctx, userA)
	if other.Payload == inv.Payload {
		t.Error("two invoices share a payload")
	}
}

func TestCheckoutService_ValidatePreCheckout(t *testing.T) {
	store, svc := newCheckoutFixture(t)
	ctx := context.Background()
	store.AddToCart(ctx, userA, 1, 2)
	payload := NewInvoicePayload()

	tests := []struct {
		name    string
		q       PreCheckout
		wantErr error
	}{
		{
			name: "matching total without shipping",
			q:    PreCheckout{UserID: userA, Currency: "RUB", TotalAmount: 1000, InvoicePayload: payload},
		},
		{
			name: "matching total with courier",
			q:    PreCheckout{UserID: userA, Currency: "rub", TotalAmount: 21000, InvoicePayload: payload, ShippingOptionID: "courier"},
		},
		{
			name:    "total changed since invoice",
			q:       PreCheckout{UserID: userA, Currency: "RUB", TotalAmount: 500, InvoicePayload: payload},
			wantErr: ErrCheckoutMismatch,
		},
		{
			name:    "other currency",
			q:       PreCheckout{UserID: userA, Currency: "USD", TotalAmount: 1000, InvoicePayload: payload},
			wantErr: ErrCheckoutMismatch,
		},
		{
			name:    "unknown shipping option",
			q:       PreCheckout{UserID: userA, Currency: "RUB", TotalAmount: 1000, InvoicePayload: payload, ShippingOptionID: "drone"},
			wantErr: ErrCheckoutMismatch,
		},
		{
			name:    "foreign payload",
			q:       PreCheckout{UserID: userA, Currency: "RUB", TotalAmount: 1000, InvoicePayload: "gift:123"},
			wantErr: ErrCheckoutMismatch,
		},
		{
			name:    "cart emptied",
			q:       PreCheckout{UserID: userB, Currency: "RUB", TotalAmount: 1000, InvoicePayload: payload},
			wantErr: domain.ErrEmptyCart,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ValidatePreCheckout(ctx, tt.q)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseInvoicePayload(t *testing.T) {
	p := NewInvoicePayload()
	id, err := ParseInvoicePayload(p)
	if err != nil {
		t.Fatalf("ParseInvoicePayload(%q): %v", p, err)
	}
	if "order:"+id != p {
		t.Errorf("id %q does not round-trip %q", id, p)
	}

	for _, bad := range []string{"", "order:", "order:not-a-uuid", "Custom-Payload"} {
		if _, err := ParseInvoicePayload(bad); !errors.Is(err, ErrCheckoutMismatch) {
			t.Errorf("ParseInvoicePayload(%q) = %v, want ErrCheckoutMismatch", bad, err)
		}
	}
}

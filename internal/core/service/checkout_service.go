package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/storefront-bot/storefront/internal/core/domain"
)

const invoicePayloadPrefix = "order:"

type CheckoutConfig struct {
	Currency        string
	Title           string
	Description     string
	ShippingOptions []domain.ShippingOption
}

// PreCheckout is the final confirmation request the payment platform sends
// before charging the buyer.
type PreCheckout struct {
	UserID           int64
	Currency         string
	TotalAmount      int64
	InvoicePayload   string
	ShippingOptionID string
}

type CheckoutService struct {
	cart *CartService
	cfg  CheckoutConfig
}

func NewCheckoutService(cart *CartService, cfg CheckoutConfig) *CheckoutService {
	if cfg.Title == "" {
		cfg.Title = "Order payment"
	}
	if cfg.Description == "" {
		cfg.Description = "Payment for your order in our store"
	}
	return &CheckoutService{cart: cart, cfg: cfg}
}

// CreateInvoice itemizes the user's cart as a single total in minor units and
// asks for every buyer detail needed for delivery.
func (s *CheckoutService) CreateInvoice(ctx context.Context, userID int64) (domain.Invoice, error) {
	entries, err := s.cart.List(ctx, userID)
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("list cart: %w", err)
	}
	if len(entries) == 0 {
		return domain.Invoice{}, domain.ErrEmptyCart
	}

	return domain.Invoice{
		Title:       s.cfg.Title,
		Description: s.cfg.Description,
		Payload:     NewInvoicePayload(),
		Currency:    s.cfg.Currency,
		Prices: []domain.LabeledPrice{
			{Label: "Total", Amount: domain.CartTotal(entries)},
		},
		Requirements: domain.InvoiceRequirements{
			Name:            true,
			PhoneNumber:     true,
			Email:           true,
			ShippingAddress: true,
		},
		Flexible: true,
	}, nil
}

func (s *CheckoutService) ShippingOptions() []domain.ShippingOption {
	return s.cfg.ShippingOptions
}

func (s *CheckoutService) shippingPrice(id string) (int64, bool) {
	if id == "" {
		return 0, true
	}
	for _, opt := range s.cfg.ShippingOptions {
		if opt.ID == id {
			return opt.Price, true
		}
	}
	return 0, false
}

// ValidatePreCheckout accepts the charge only when it still matches the
// buyer's cart plus the chosen shipping price.
func (s *CheckoutService) ValidatePreCheckout(ctx context.Context, q PreCheckout) error {
	if _, err := ParseInvoicePayload(q.InvoicePayload); err != nil {
		return err
	}
	if !strings.EqualFold(q.Currency, s.cfg.Currency) {
		return fmt.Errorf("currency %q: %w", q.Currency, ErrCheckoutMismatch)
	}

	shipping, ok := s.shippingPrice(q.ShippingOptionID)
	if !ok {
		return fmt.Errorf("shipping option %q: %w", q.ShippingOptionID, ErrCheckoutMismatch)
	}

	total, err := s.cart.Total(ctx, q.UserID)
	if err != nil {
		return fmt.Errorf("cart total: %w", err)
	}
	if total.Amount == 0 {
		return domain.ErrEmptyCart
	}
	if total.Amount+shipping != q.TotalAmount {
		return fmt.Errorf("expected %d, got %d: %w", total.Amount+shipping, q.TotalAmount, ErrCheckoutMismatch)
	}
	return nil
}

func NewInvoicePayload() string {
	return invoicePayloadPrefix + uuid.NewString()
}

// ParseInvoicePayload returns the order id carried by an invoice payload.
func ParseInvoicePayload(payload string) (string, error) {
	raw, ok := strings.CutPrefix(payload, invoicePayloadPrefix)
	if !ok {
		return "", fmt.Errorf("invoice payload %q: %w", payload, ErrCheckoutMismatch)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", errors.Join(ErrCheckoutMismatch, err)
	}
	return id.String(), nil
}

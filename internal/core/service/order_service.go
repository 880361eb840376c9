package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/storefront-bot/storefront/internal/core/domain"
	"github.com/storefront-bot/storefront/internal/metrics"
	"github.com/storefront-bot/storefront/internal/port"
)

type OrderService struct {
	cart       *CartService
	orderQueue chan domain.Order

	mu     sync.RWMutex
	closed bool
}

func NewOrderService(cart *CartService, queueSize int) *OrderService {
	return &OrderService{
		cart:       cart,
		orderQueue: make(chan domain.Order, queueSize),
	}
}

// Complete turns a successful payment into an order snapshot of the buyer's
// cart and queues it for persistence.
func (s *OrderService) Complete(ctx context.Context, payment domain.Payment) (domain.Order, error) {
	orderID, err := ParseInvoicePayload(payment.InvoicePayload)
	if err != nil {
		return domain.Order{}, err
	}

	entries, err := s.cart.List(ctx, payment.UserID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("list cart: %w", err)
	}

	lines := make([]domain.OrderLine, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, domain.OrderLine{
			ItemID:    e.Item.ID,
			Name:      e.Item.Name,
			UnitPrice: e.Item.Price,
			Quantity:  e.Quantity,
		})
	}

	now := time.Now()
	order := domain.Order{
		ID:     orderID,
		UserID: payment.UserID,
		Lines:  lines,
		Total: domain.Money{
			Currency: strings.ToUpper(payment.Currency),
			Amount:   payment.TotalAmount,
		},
		Status:           domain.OrderStatusPaid,
		ProviderChargeID: payment.ProviderChargeID,
		TelegramChargeID: payment.TelegramChargeID,
		ShippingOptionID: payment.ShippingOptionID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.Order{}, ErrQueueClosed
	}

	select {
	case s.orderQueue <- order:
		return order, nil
	case <-ctx.Done():
		return domain.Order{}, ctx.Err()
	}
}

func (s *OrderService) GetOrderQueue() <-chan domain.Order {
	return s.orderQueue
}

func (s *OrderService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.orderQueue)
}

// RunOrderWorker persists queued orders until the queue is closed. A failed
// write is logged and counted, never retried.
func RunOrderWorker(id int, queue <-chan domain.Order, db port.OrderRepository, logger *slog.Logger, m *metrics.Metrics) {
	logger = logger.With("worker", id)
	for order := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := db.CreateOrder(ctx, order); err != nil {
			logger.Error("failed to save order",
				"order_id", order.ID,
				"user_id", order.UserID,
				"error", err)
			m.Order("failed")
		} else {
			logger.Info("saved order",
				"order_id", order.ID,
				"user_id", order.UserID,
				"total", order.Total.String())
			m.Order("saved")
		}

		cancel()
	}
}

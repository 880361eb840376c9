package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/storefront-bot/storefront/internal/core/domain"
	"github.com/storefront-bot/storefront/internal/metrics"
)

func TestOrderService_CompleteSnapshotsCart(t *testing.T) {
	store := newMockStore(
		domain.Item{ID: 1, Name: "Classic", Price: 500},
		domain.Item{ID: 2, Name: "Cheese", Price: 300},
	)
	ctx := context.Background()
	store.AddToCart(ctx, userA, 1, 2)
	store.AddToCart(ctx, userA, 2, 1)

	svc := NewOrderService(NewCartService(store, "RUB"), 1)
	defer svc.Close()

	payload := NewInvoicePayload()
	order, err := svc.Complete(ctx, domain.Payment{
		UserID:           userA,
		Currency:         "RUB",
		TotalAmount:      1300,
		InvoicePayload:   payload,
		ShippingOptionID: "pickup",
		ProviderChargeID: "prov-1",
		TelegramChargeID: "tg-1",
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if "order:"+order.ID != payload {
		t.Errorf("order id %q not taken from payload %q", order.ID, payload)
	}
	if order.Status != domain.OrderStatusPaid {
		t.Errorf("status = %s", order.Status)
	}
	if len(order.Lines) != 2 || order.Lines[0].Quantity != 2 || order.Lines[1].UnitPrice != 300 {
		t.Errorf("lines = %+v", order.Lines)
	}

	queued := <-svc.GetOrderQueue()
	if queued.ID != order.ID {
		t.Errorf("queued %q, returned %q", queued.ID, order.ID)
	}
}

func TestOrderService_CompleteRejectsForeignPayload(t *testing.T) {
	svc := NewOrderService(NewCartService(newMockStore(), "RUB"), 1)
	defer svc.Close()

	_, err := svc.Complete(context.Background(), domain.Payment{UserID: userA, InvoicePayload: "x"})
	if !errors.Is(err, ErrCheckoutMismatch) {
		t.Fatalf("expected ErrCheckoutMismatch, got %v", err)
	}
	if len(svc.GetOrderQueue()) != 0 {
		t.Error("order queued for foreign payload")
	}
}

func TestOrderService_CompleteAfterClose(t *testing.T) {
	svc := NewOrderService(NewCartService(newMockStore(), "RUB"), 1)
	svc.Close()
	svc.Close()

	_, err := svc.Complete(context.Background(), domain.Payment{UserID: userA, InvoicePayload: NewInvoicePayload()})
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestOrderService_CompleteHonoursContext(t *testing.T) {
	svc := NewOrderService(NewCartService(newMockStore(), "RUB"), 1)
	defer svc.Close()

	// Fill the queue so the next enqueue blocks.
	if _, err := svc.Complete(context.Background(), domain.Payment{UserID: userA, InvoicePayload: NewInvoicePayload()}); err != nil {
		t.Fatalf("first Complete failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Complete(ctx, domain.Payment{UserID: userA, InvoicePayload: NewInvoicePayload()})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRunOrderWorker(t *testing.T) {
	m := metrics.New()
	repo := &mockOrders{}
	queue := make(chan domain.Order, 3)
	queue <- domain.Order{ID: "a", UserID: userA}
	queue <- domain.Order{ID: "b", UserID: userB}
	close(queue)

	done := make(chan struct{})
	go func() {
		RunOrderWorker(1, queue, repo, discardLogger(), m)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after queue was closed")
	}

	if got, _ := repo.ListOrders(context.Background(), userA); len(got) != 1 {
		t.Errorf("expected one order for user A, got %d", len(got))
	}
	if got := testutil.ToFloat64(m.OrderCounter.WithLabelValues("saved")); got != 2 {
		t.Errorf("saved counter = %v, want 2", got)
	}
}

func TestRunOrderWorker_CountsFailures(t *testing.T) {
	m := metrics.New()
	repo := &mockOrders{fail: true}
	queue := make(chan domain.Order, 1)
	queue <- domain.Order{ID: "a", UserID: userA}
	close(queue)

	RunOrderWorker(1, queue, repo, discardLogger(), m)

	if got := testutil.ToFloat64(m.OrderCounter.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed counter = %v, want 1", got)
	}
}

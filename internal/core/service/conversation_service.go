package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/storefront-bot/storefront/internal/core/domain"
	"github.com/storefront-bot/storefront/internal/metrics"
	"github.com/storefront-bot/storefront/internal/port"
)

const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

type ConversationDeps struct {
	Catalog  *CatalogService
	Cart     *CartService
	Checkout *CheckoutService
	Orders   *OrderService
	Sessions port.SessionRepository

	// AdminUserID is the only user allowed to mutate the catalog. Zero disables
	// the admin path entirely.
	AdminUserID int64

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// ConversationService is the controller of the storefront conversation. It
// loads the caller's session state, validates the event against it, mutates
// the cart or catalog, stores the next state and returns the replies to send.
type ConversationService struct {
	catalog  *CatalogService
	cart     *CartService
	checkout *CheckoutService
	orders   *OrderService
	sessions port.SessionRepository
	adminID  int64
	locks    *userLocks
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewConversationService(deps ConversationDeps) *ConversationService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationService{
		catalog:  deps.Catalog,
		cart:     deps.Cart,
		checkout: deps.Checkout,
		orders:   deps.Orders,
		sessions: deps.Sessions,
		adminID:  deps.AdminUserID,
		locks:    newUserLocks(),
		logger:   logger.With("component", "conversation"),
		metrics:  deps.Metrics,
	}
}

// turn accumulates the result of handling one event.
type turn struct {
	ev    domain.Event
	state domain.SessionState
	// next is nil when the stored state must stay untouched.
	next     domain.SessionState
	res      domain.Response
	rejected bool
}

func (t *turn) reply(r domain.Reply) {
	t.res.Add(r)
}

func (t *turn) say(text string) {
	t.res.Add(domain.Reply{Text: text})
}

func (t *turn) reject(text string) {
	t.rejected = true
	t.res.Add(domain.Reply{Text: text})
}

func failureResponse() domain.Response {
	return domain.Response{Replies: []domain.Reply{{Text: msgGenericFailure}}}
}

// Handle processes one event to completion. Events of the same user are
// handled one at a time; store failures produce a generic failure reply and
// leave the stored state as it was.
func (s *ConversationService) Handle(ctx context.Context, ev domain.Event) domain.Response {
	start := time.Now()
	logger := s.logger.With("user_id", ev.UserID, "kind", ev.Kind)

	unlock := s.locks.Lock(ev.UserID)
	defer unlock()

	state, err := s.sessions.LoadSession(ctx, ev.UserID)
	if err != nil {
		logger.Error("failed to load session", "error", err)
		s.metrics.ObserveEvent(string(ev.Kind), outcomeError, time.Since(start))
		return failureResponse()
	}
	if state == nil {
		state = domain.Idle{}
	}

	t := &turn{ev: ev, state: state}
	if err := s.dispatch(ctx, t); err != nil {
		logger.Error("failed to handle event", "state", state.Kind(), "error", err)
		s.metrics.ObserveEvent(string(ev.Kind), outcomeError, time.Since(start))
		return failureResponse()
	}

	if t.next != nil {
		if err := s.sessions.SaveSession(ctx, ev.UserID, t.next); err != nil {
			logger.Error("failed to save session", "next", t.next.Kind(), "error", err)
			s.metrics.ObserveEvent(string(ev.Kind), outcomeError, time.Since(start))
			return failureResponse()
		}
	}

	outcome := outcomeOK
	if t.rejected {
		outcome = outcomeRejected
	}
	logger.Debug("handled event", "state", state.Kind(), "outcome", outcome)
	s.metrics.ObserveEvent(string(ev.Kind), outcome, time.Since(start))
	return t.res
}

func (s *ConversationService) isAdmin(userID int64) bool {
	return s.adminID != 0 && userID == s.adminID
}

func (s *ConversationService) dispatch(ctx context.Context, t *turn) error {
	switch t.ev.Kind {
	case domain.EventCommand:
		return s.handleCommand(ctx, t)
	case domain.EventButton:
		return s.handleButton(ctx, t)
	case domain.EventText:
		return s.handleText(ctx, t)
	default:
		t.reject(msgNotUnderstood)
		return nil
	}
}

func (s *ConversationService) handleCommand(ctx context.Context, t *turn) error {
	isAdmin := s.isAdmin(t.ev.UserID)

	// Admin requests from anybody else must not touch the session at all.
	if t.ev.Command == domain.CommandAdminRemoveItem && !isAdmin {
		t.reject(msgPermissionDenied)
		return nil
	}

	switch t.ev.Command {
	case domain.CommandStart:
		t.next = domain.Idle{}
		t.say(msgWelcome + "\n\n" + commandList(isAdmin))
	case domain.CommandHelp:
		t.next = domain.Idle{}
		t.say(commandList(isAdmin))
	case domain.CommandListItems:
		t.next = domain.Idle{}
		return s.showCatalog(ctx, t)
	case domain.CommandViewCart:
		t.next = domain.Idle{}
		return s.showCart(ctx, t)
	case domain.CommandRemoveFromCart:
		t.next = domain.Idle{}
		return s.showRemovalList(ctx, t)
	case domain.CommandCancel:
		s.cancel(t, false)
	case domain.CommandAdminRemoveItem:
		items, err := s.catalog.ListItems(ctx)
		if err != nil {
			return err
		}
		t.next = domain.AwaitingAdminItemID{}
		t.say(adminCatalogText(items, s.cart.Currency()) + "\n\n" + msgAskAdminItemID)
	default:
		t.reject(msgNotUnderstood)
	}
	return nil
}

func (s *ConversationService) cancel(t *turn, edit bool) {
	text := msgCancelled
	if _, idle := t.state.(domain.Idle); idle {
		text = msgNothingToCancel
	}
	t.next = domain.Idle{}
	t.reply(domain.Reply{Text: text, Edit: edit})
}

func (s *ConversationService) showCatalog(ctx context.Context, t *turn) error {
	items, err := s.catalog.ListItems(ctx)
	if err != nil {
		return err
	}
	t.reply(catalogReply(items))
	return nil
}

func (s *ConversationService) showCart(ctx context.Context, t *turn) error {
	entries, err := s.cart.List(ctx, t.ev.UserID)
	if err != nil {
		return fmt.Errorf("list cart: %w", err)
	}
	if len(entries) == 0 {
		t.say(msgEmptyCart)
		return nil
	}
	t.reply(cartReply(entries, s.cart.Currency()))
	return nil
}

func (s *ConversationService) showRemovalList(ctx context.Context, t *turn) error {
	entries, err := s.cart.List(ctx, t.ev.UserID)
	if err != nil {
		return fmt.Errorf("list cart: %w", err)
	}
	if len(entries) == 0 {
		t.say(msgEmptyCart)
		return nil
	}
	t.reply(removalListReply(entries))
	return nil
}

func (s *ConversationService) handleButton(ctx context.Context, t *turn) error {
	p := t.ev.Payload

	switch p.Action {
	case domain.ActionCancel:
		s.cancel(t, true)
		return nil
	case domain.ActionShowQuantity:
		// Display-only button in the quantity row.
		return nil
	case domain.ActionSelect:
		return s.selectItem(ctx, t)
	case domain.ActionIncrement, domain.ActionDecrement:
		return s.adjustQuantity(ctx, t)
	case domain.ActionConfirmAdd:
		return s.confirmAdd(ctx, t)
	case domain.ActionRemove:
		return s.requestRemoval(ctx, t)
	case domain.ActionRemoveAmount:
		st, ok := t.state.(domain.AwaitingRemovalAmount)
		if !ok || st.ItemID != p.ItemID {
			t.reject(msgStaleButton)
			return nil
		}
		return s.applyRemoval(ctx, t, st, p.Amount)
	case domain.ActionCheckout:
		return s.startCheckout(ctx, t)
	default:
		t.reject(msgInvalidData)
		return nil
	}
}

func (s *ConversationService) selectItem(ctx context.Context, t *turn) error {
	if _, idle := t.state.(domain.Idle); !idle {
		t.reject(msgFinishFirst)
		return nil
	}

	item, err := s.catalog.GetItem(ctx, t.ev.Payload.ItemID)
	if errors.Is(err, domain.ErrItemNotFound) {
		t.reject(msgItemUnavailable)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get item: %w", err)
	}

	st := domain.NewSelectingQuantity(item.ID)
	t.next = st
	t.reply(itemCardReply(item, st, s.cart.Currency()))
	return nil
}

// selection returns the pending selection the pressed button belongs to.
func selection(t *turn) (domain.SelectingQuantity, bool) {
	st, ok := t.state.(domain.SelectingQuantity)
	if !ok || st.ItemID != t.ev.Payload.ItemID {
		return domain.SelectingQuantity{}, false
	}
	return st, true
}

func (s *ConversationService) adjustQuantity(ctx context.Context, t *turn) error {
	st, ok := selection(t)
	if !ok {
		t.reject(msgStaleButton)
		return nil
	}

	item, err := s.catalog.GetItem(ctx, st.ItemID)
	if errors.Is(err, domain.ErrItemNotFound) {
		t.next = domain.Idle{}
		t.reject(msgItemUnavailable)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get item: %w", err)
	}

	next := st.Increment()
	if t.ev.Payload.Action == domain.ActionDecrement {
		next = st.Decrement()
	}
	if next == st {
		return nil
	}
	t.next = next
	t.reply(itemCardReply(item, next, s.cart.Currency()))
	return nil
}

func (s *ConversationService) confirmAdd(ctx context.Context, t *turn) error {
	st, ok := selection(t)
	if !ok {
		t.reject(msgStaleButton)
		return nil
	}

	item, err := s.catalog.GetItem(ctx, st.ItemID)
	if err == nil {
		err = s.cart.Add(ctx, t.ev.UserID, item.ID, st.Quantity)
	}
	if errors.Is(err, domain.ErrItemNotFound) {
		t.next = domain.Idle{}
		t.reject(msgItemUnavailable)
		return nil
	}
	if err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}
	s.metrics.CartMutation("add")

	t.next = domain.Idle{}
	t.reply(domain.Reply{
		Text: fmt.Sprintf("Added %d × %s to your cart!", st.Quantity, item.Name),
		Edit: true,
	})
	t.say(commandList(s.isAdmin(t.ev.UserID)))
	return nil
}

func (s *ConversationService) requestRemoval(ctx context.Context, t *turn) error {
	if _, idle := t.state.(domain.Idle); !idle {
		t.reject(msgFinishFirst)
		return nil
	}

	entries, err := s.cart.List(ctx, t.ev.UserID)
	if err != nil {
		return fmt.Errorf("list cart: %w", err)
	}
	for _, e := range entries {
		if e.Item.ID == t.ev.Payload.ItemID {
			t.next = domain.AwaitingRemovalAmount{ItemID: e.Item.ID, MaxQuantity: e.Quantity}
			t.reply(removalPromptReply(e))
			return nil
		}
	}

	t.reject(msgNotInCart)
	return nil
}

// applyRemoval rejects amounts outside 1..MaxQuantity and keeps asking.
func (s *ConversationService) applyRemoval(ctx context.Context, t *turn, st domain.AwaitingRemovalAmount, n int) error {
	if !st.Accepts(n) {
		t.reject(rangePrompt(st.MaxQuantity))
		return nil
	}

	remaining, err := s.cart.Remove(ctx, t.ev.UserID, st.ItemID, n)
	if errors.Is(err, domain.ErrCartLineNotFound) {
		t.next = domain.Idle{}
		t.reject(msgNotInCart)
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove from cart: %w", err)
	}
	s.metrics.CartMutation("remove")

	name := "item(s)"
	if item, err := s.catalog.GetItem(ctx, st.ItemID); err == nil {
		name = item.Name
	}

	text := fmt.Sprintf("Removed %d × %s.", n, name)
	if remaining > 0 {
		text += fmt.Sprintf(" %d left in your cart.", remaining)
	}
	t.next = domain.Idle{}
	t.say(text)
	t.say(commandList(s.isAdmin(t.ev.UserID)))
	return nil
}

func (s *ConversationService) startCheckout(ctx context.Context, t *turn) error {
	if _, idle := t.state.(domain.Idle); !idle {
		t.reject(msgFinishFirst)
		return nil
	}

	invoice, err := s.checkout.CreateInvoice(ctx, t.ev.UserID)
	if errors.Is(err, domain.ErrEmptyCart) {
		s.metrics.Checkout("invoice", outcomeRejected)
		t.rejected = true
		t.reply(domain.Reply{Text: msgEmptyCart, Edit: true})
		return nil
	}
	if err != nil {
		s.metrics.Checkout("invoice", outcomeError)
		return err
	}

	s.metrics.Checkout("invoice", outcomeOK)
	t.res.Invoice = &invoice
	return nil
}

func (s *ConversationService) handleText(ctx context.Context, t *turn) error {
	text := strings.TrimSpace(t.ev.Text)

	switch st := t.state.(type) {
	case domain.AwaitingRemovalAmount:
		n, err := strconv.Atoi(text)
		if err != nil {
			t.reject(msgEnterNumber)
			return nil
		}
		return s.applyRemoval(ctx, t, st, n)

	case domain.AwaitingAdminItemID:
		if !s.isAdmin(t.ev.UserID) {
			t.reject(msgPermissionDenied)
			return nil
		}
		id, err := domain.ParsePositiveInt(text)
		if err != nil {
			t.reject(msgEnterItemID)
			return nil
		}
		return s.removeCatalogItem(ctx, t, id)

	default:
		t.reject(msgNotUnderstood)
		return nil
	}
}

func (s *ConversationService) removeCatalogItem(ctx context.Context, t *turn, id int64) error {
	err := s.catalog.RemoveItem(ctx, id)
	if errors.Is(err, domain.ErrItemNotFound) {
		t.next = domain.Idle{}
		t.reject(fmt.Sprintf("There is no item with id %d.", id))
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove item %d: %w", id, err)
	}

	s.logger.Info("catalog item removed", "item_id", id, "admin_id", t.ev.UserID)
	t.next = domain.Idle{}
	t.say(fmt.Sprintf("Item #%d has been removed.", id))
	return s.showCatalog(ctx, t)
}

// HandlePayment records a completed payment as an order and thanks the buyer.
func (s *ConversationService) HandlePayment(ctx context.Context, payment domain.Payment) domain.Response {
	unlock := s.locks.Lock(payment.UserID)
	defer unlock()

	logger := s.logger.With("user_id", payment.UserID)
	order, err := s.orders.Complete(ctx, payment)
	if err != nil {
		logger.Error("failed to record payment",
			"payload", payment.InvoicePayload,
			"charge_id", payment.ProviderChargeID,
			"error", err)
		s.metrics.Checkout("payment", outcomeError)
		return failureResponse()
	}

	logger.Info("payment received", "order_id", order.ID, "total", order.Total.String())
	s.metrics.Checkout("payment", outcomeOK)
	return domain.Response{Replies: []domain.Reply{{Text: msgPaymentThanks}}}
}

package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/storefront-bot/storefront/internal/core/domain"
)

var errStoreDown = errors.New("store unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Mock CatalogRepository + CartRepository sharing one item table, so that
// item removal can cascade to cart lines like the SQL adapter does.
type mockStore struct {
	mu     sync.Mutex
	items  map[int64]domain.Item
	nextID int64
	lines  map[int64]map[int64]int
	fail   bool
}

func newMockStore(items ...domain.Item) *mockStore {
	s := &mockStore{
		items: make(map[int64]domain.Item),
		lines: make(map[int64]map[int64]int),
	}
	for _, item := range items {
		s.items[item.ID] = item
		if item.ID > s.nextID {
			s.nextID = item.ID
		}
	}
	return s
}

func (m *mockStore) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *mockStore) ListItems(ctx context.Context) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errStoreDown
	}
	items := make([]domain.Item, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *mockStore) GetItem(ctx context.Context, id int64) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return domain.Item{}, errStoreDown
	}
	item, ok := m.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return item, nil
}

func (m *mockStore) CreateItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return domain.Item{}, errStoreDown
	}
	m.nextID++
	item.ID = m.nextID
	m.items[item.ID] = item
	return item, nil
}

func (m *mockStore) RemoveItem(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errStoreDown
	}
	if _, ok := m.items[id]; !ok {
		return domain.ErrItemNotFound
	}
	delete(m.items, id)
	for _, lines := range m.lines {
		delete(lines, id)
	}
	return nil
}

func (m *mockStore) AddToCart(ctx context.Context, userID, itemID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errStoreDown
	}
	if _, ok := m.items[itemID]; !ok {
		return domain.ErrItemNotFound
	}
	if m.lines[userID] == nil {
		m.lines[userID] = make(map[int64]int)
	}
	m.lines[userID][itemID] += quantity
	return nil
}

func (m *mockStore) RemoveFromCart(ctx context.Context, userID, itemID int64, quantity int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return 0, errStoreDown
	}
	current, ok := m.lines[userID][itemID]
	if !ok {
		return 0, domain.ErrCartLineNotFound
	}
	remaining := current - quantity
	if remaining <= 0 {
		delete(m.lines[userID], itemID)
		return 0, nil
	}
	m.lines[userID][itemID] = remaining
	return remaining, nil
}

func (m *mockStore) GetCartLine(ctx context.Context, userID, itemID int64) (domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return domain.CartLine{}, errStoreDown
	}
	qty, ok := m.lines[userID][itemID]
	if !ok {
		return domain.CartLine{}, domain.ErrCartLineNotFound
	}
	return domain.CartLine{UserID: userID, ItemID: itemID, Quantity: qty}, nil
}

func (m *mockStore) ListCart(ctx context.Context, userID int64) ([]domain.CartEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errStoreDown
	}
	var entries []domain.CartEntry
	for itemID, qty := range m.lines[userID] {
		item, ok := m.items[itemID]
		if !ok {
			continue
		}
		entries = append(entries, domain.CartEntry{Item: item, Quantity: qty})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Item.ID < entries[j].Item.ID })
	return entries, nil
}

func (m *mockStore) ClearCart(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errStoreDown
	}
	delete(m.lines, userID)
	return nil
}

func (m *mockStore) quantity(userID, itemID int64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qty, ok := m.lines[userID][itemID]
	return qty, ok
}

func (m *mockStore) itemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Mock SessionRepository
type mockSessions struct {
	mu       sync.Mutex
	states   map[int64]domain.SessionState
	failSave bool
}

func newMockSessions() *mockSessions {
	return &mockSessions{states: make(map[int64]domain.SessionState)}
}

func (m *mockSessions) LoadSession(ctx context.Context, userID int64) (domain.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[userID]
	if !ok {
		return domain.Idle{}, nil
	}
	return st, nil
}

func (m *mockSessions) SaveSession(ctx context.Context, userID int64, state domain.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errStoreDown
	}
	m.states[userID] = state
	return nil
}

func (m *mockSessions) get(userID int64) domain.SessionState {
	st, _ := m.LoadSession(context.Background(), userID)
	return st
}

// Mock OrderRepository
type mockOrders struct {
	mu     sync.Mutex
	orders []domain.Order
	fail   bool
}

func (m *mockOrders) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errStoreDown
	}
	m.orders = append(m.orders, order)
	return nil
}

func (m *mockOrders) ListOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

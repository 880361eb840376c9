package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/storefront-bot/storefront/internal/core/domain"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case DialectSQLite, DialectMySQL, DialectPostgres:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported storage driver %q", s)
	}
}

// SQLAdapter implements the catalog, cart, session and order repositories on
// top of database/sql. Queries are written with ? placeholders and rebound
// for the dialect.
type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLAdapter(db *sql.DB, dialect Dialect) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: dialect}
}

func (a *SQLAdapter) DB() *sql.DB {
	return a.db
}

func (a *SQLAdapter) Dialect() Dialect {
	return a.dialect
}

func (a *SQLAdapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *SQLAdapter) Close() error {
	return a.db.Close()
}

// rebind rewrites ? placeholders to $1..$n for postgres.
func (a *SQLAdapter) rebind(query string) string {
	if a.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// forUpdate returns the row lock suffix; sqlite locks the whole database for
// the duration of a write transaction instead.
func (a *SQLAdapter) forUpdate() string {
	if a.dialect == DialectSQLite {
		return ""
	}
	return " FOR UPDATE"
}

func (a *SQLAdapter) ListItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT id, name, description, price FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Price); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (a *SQLAdapter) GetItem(ctx context.Context, id int64) (domain.Item, error) {
	var item domain.Item
	err := a.db.QueryRowContext(ctx, a.rebind(`
		SELECT id, name, description, price
		FROM items WHERE id = ?`), id,
	).Scan(&item.ID, &item.Name, &item.Description, &item.Price)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, domain.ErrItemNotFound
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("query item: %w", err)
	}
	return item, nil
}

func (a *SQLAdapter) CreateItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	const insert = `INSERT INTO items (name, description, price) VALUES (?, ?, ?)`

	if a.dialect == DialectPostgres {
		err := a.db.QueryRowContext(ctx, a.rebind(insert+` RETURNING id`),
			item.Name, item.Description, item.Price,
		).Scan(&item.ID)
		if err != nil {
			return domain.Item{}, fmt.Errorf("insert item: %w", err)
		}
		return item, nil
	}

	result, err := a.db.ExecContext(ctx, insert, item.Name, item.Description, item.Price)
	if err != nil {
		return domain.Item{}, fmt.Errorf("insert item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return domain.Item{}, fmt.Errorf("insert item: %w", err)
	}
	item.ID = id
	return item, nil
}

// RemoveItem deletes the item and the cart lines pointing at it in one
// transaction.
func (a *SQLAdapter) RemoveItem(ctx context.Context, id int64) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, a.rebind(`DELETE FROM cart_lines WHERE item_id = ?`), id); err != nil {
		return fmt.Errorf("delete cart lines: %w", err)
	}

	result, err := tx.ExecContext(ctx, a.rebind(`DELETE FROM items WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete item rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrItemNotFound
	}

	return tx.Commit()
}

func (a *SQLAdapter) upsertCartLine() string {
	if a.dialect == DialectMySQL {
		return `INSERT INTO cart_lines (user_id, item_id, quantity) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`
	}
	return `INSERT INTO cart_lines (user_id, item_id, quantity) VALUES (?, ?, ?)
		ON CONFLICT (user_id, item_id) DO UPDATE SET quantity = cart_lines.quantity + excluded.quantity`
}

func (a *SQLAdapter) AddToCart(ctx context.Context, userID, itemID int64, quantity int) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, a.rebind(`SELECT id FROM items WHERE id = ?`+a.forUpdate()), itemID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrItemNotFound
	}
	if err != nil {
		return fmt.Errorf("query item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, a.rebind(a.upsertCartLine()), userID, itemID, quantity); err != nil {
		return fmt.Errorf("upsert cart line: %w", err)
	}

	return tx.Commit()
}

func (a *SQLAdapter) RemoveFromCart(ctx context.Context, userID, itemID int64, quantity int) (int, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx, a.rebind(`
		SELECT quantity FROM cart_lines
		WHERE user_id = ? AND item_id = ?`+a.forUpdate()), userID, itemID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrCartLineNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query cart line: %w", err)
	}

	remaining := current - quantity
	if remaining <= 0 {
		remaining = 0
		_, err = tx.ExecContext(ctx, a.rebind(`
			DELETE FROM cart_lines WHERE user_id = ? AND item_id = ?`), userID, itemID)
	} else {
		_, err = tx.ExecContext(ctx, a.rebind(`
			UPDATE cart_lines SET quantity = ?
			WHERE user_id = ? AND item_id = ?`), remaining, userID, itemID)
	}
	if err != nil {
		return 0, fmt.Errorf("update cart line: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return remaining, nil
}

func (a *SQLAdapter) GetCartLine(ctx context.Context, userID, itemID int64) (domain.CartLine, error) {
	line := domain.CartLine{UserID: userID, ItemID: itemID}
	err := a.db.QueryRowContext(ctx, a.rebind(`
		SELECT quantity FROM cart_lines
		WHERE user_id = ? AND item_id = ?`), userID, itemID,
	).Scan(&line.Quantity)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.CartLine{}, domain.ErrCartLineNotFound
	}
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("query cart line: %w", err)
	}
	return line, nil
}

func (a *SQLAdapter) ListCart(ctx context.Context, userID int64) ([]domain.CartEntry, error) {
	rows, err := a.db.QueryContext(ctx, a.rebind(`
		SELECT i.id, i.name, i.description, i.price, c.quantity
		FROM cart_lines c
		JOIN items i ON i.id = c.item_id
		WHERE c.user_id = ?
		ORDER BY i.id`), userID)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	defer rows.Close()

	var entries []domain.CartEntry
	for rows.Next() {
		var e domain.CartEntry
		if err := rows.Scan(&e.Item.ID, &e.Item.Name, &e.Item.Description, &e.Item.Price, &e.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (a *SQLAdapter) ClearCart(ctx context.Context, userID int64) error {
	if _, err := a.db.ExecContext(ctx, a.rebind(`DELETE FROM cart_lines WHERE user_id = ?`), userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (a *SQLAdapter) LoadSession(ctx context.Context, userID int64) (domain.SessionState, error) {
	var data string
	err := a.db.QueryRowContext(ctx, a.rebind(`SELECT state FROM sessions WHERE user_id = ?`), userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Idle{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	return domain.UnmarshalState([]byte(data))
}

func (a *SQLAdapter) upsertSession() string {
	if a.dialect == DialectMySQL {
		return `INSERT INTO sessions (user_id, state, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE state = VALUES(state), updated_at = VALUES(updated_at)`
	}
	return `INSERT INTO sessions (user_id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`
}

func (a *SQLAdapter) SaveSession(ctx context.Context, userID int64, state domain.SessionState) error {
	data, err := domain.MarshalState(state)
	if err != nil {
		return err
	}
	if _, err := a.db.ExecContext(ctx, a.rebind(a.upsertSession()), userID, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// CreateOrder stores the order with its line snapshot and takes the paid
// quantities out of the buyer's cart in the same transaction.
func (a *SQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	lines, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("encode order lines: %w", err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, a.rebind(`
		INSERT INTO orders (id, user_id, line_items, total, currency, status,
			provider_charge_id, telegram_charge_id, shipping_option_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		order.ID, order.UserID, string(lines), order.Total.Amount, order.Total.Currency, string(order.Status),
		order.ProviderChargeID, order.TelegramChargeID, order.ShippingOptionID,
		order.CreatedAt.UTC(), order.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	// Only the paid quantities leave the cart. Lines added after the
	// snapshot was taken stay.
	for _, line := range order.Lines {
		if _, err := tx.ExecContext(ctx, a.rebind(`
			UPDATE cart_lines SET quantity = quantity - ?
			WHERE user_id = ? AND item_id = ?`),
			line.Quantity, order.UserID, line.ItemID,
		); err != nil {
			return fmt.Errorf("decrement cart line %d: %w", line.ItemID, err)
		}
	}
	if _, err := tx.ExecContext(ctx, a.rebind(`DELETE FROM cart_lines WHERE user_id = ? AND quantity <= 0`), order.UserID); err != nil {
		return fmt.Errorf("clear paid lines: %w", err)
	}

	return tx.Commit()
}

func (a *SQLAdapter) ListOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	rows, err := a.db.QueryContext(ctx, a.rebind(`
		SELECT id, user_id, line_items, total, currency, status,
			provider_charge_id, telegram_charge_id, shipping_option_id, created_at, updated_at
		FROM orders WHERE user_id = ?
		ORDER BY created_at DESC, id`), userID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var (
			o      domain.Order
			lines  string
			status string
		)
		err := rows.Scan(&o.ID, &o.UserID, &lines, &o.Total.Amount, &o.Total.Currency, &status,
			&o.ProviderChargeID, &o.TelegramChargeID, &o.ShippingOptionID, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if err := json.Unmarshal([]byte(lines), &o.Lines); err != nil {
			return nil, fmt.Errorf("decode order %s lines: %w", o.ID, err)
		}
		o.Status = domain.OrderStatus(status)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

package storage

import (
	"context"
	"fmt"
)

type columnTypes struct {
	id        string
	text      string
	timestamp string
}

func (a *SQLAdapter) columnTypes() columnTypes {
	switch a.dialect {
	case DialectMySQL:
		return columnTypes{id: "BIGINT AUTO_INCREMENT PRIMARY KEY", text: "TEXT", timestamp: "DATETIME(6)"}
	case DialectPostgres:
		return columnTypes{id: "BIGSERIAL PRIMARY KEY", text: "TEXT", timestamp: "TIMESTAMPTZ"}
	default:
		return columnTypes{id: "INTEGER PRIMARY KEY AUTOINCREMENT", text: "TEXT", timestamp: "TIMESTAMP"}
	}
}

func (a *SQLAdapter) schema() []string {
	t := a.columnTypes()
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS items (
			id %s,
			name VARCHAR(255) NOT NULL,
			description %s NOT NULL,
			price BIGINT NOT NULL
		)`, t.id, t.text),
		`CREATE TABLE IF NOT EXISTS cart_lines (
			user_id BIGINT NOT NULL,
			item_id BIGINT NOT NULL,
			quantity INT NOT NULL,
			PRIMARY KEY (user_id, item_id)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS sessions (
			user_id BIGINT NOT NULL PRIMARY KEY,
			state %s NOT NULL,
			updated_at %s NOT NULL
		)`, t.text, t.timestamp),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			line_items %s NOT NULL,
			total BIGINT NOT NULL,
			currency VARCHAR(8) NOT NULL,
			status VARCHAR(16) NOT NULL,
			provider_charge_id VARCHAR(255) NOT NULL,
			telegram_charge_id VARCHAR(255) NOT NULL,
			shipping_option_id VARCHAR(64) NOT NULL,
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, t.text, t.timestamp, t.timestamp),
	}
}

// Migrate creates the tables if they do not exist yet.
func (a *SQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range a.schema() {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Sessions.Backend != SessionsSQL {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Payments.Currency != "RUB" || cfg.Orders.Workers <= 0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Admin.UserID != 0 {
		t.Errorf("admin must be disabled by default, got %d", cfg.Admin.UserID)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
app:
  env: staging
  log_level: debug
telegram:
  token: from-file
admin:
  user_id: 111
storage:
  driver: MySQL
  dsn: "root:root@tcp(localhost:3306)/store"
sessions:
  backend: redis
  redis_addr: "redis:6379"
  update_dedupe_ttl: 2h
payments:
  currency: usd
  shipping_options:
    - id: pickup
      title: Pickup
      price: "0"
    - id: courier
      title: Courier
      price: "200.00"
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("ADMIN_USER_ID", "222")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Telegram.Token != "from-env" {
		t.Errorf("env did not override token: %q", cfg.Telegram.Token)
	}
	if cfg.Admin.UserID != 222 {
		t.Errorf("admin id = %d, want 222", cfg.Admin.UserID)
	}
	if cfg.App.Env != "staging" || cfg.App.LogLevel != "debug" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Storage.Driver != "mysql" {
		t.Errorf("driver not normalised: %q", cfg.Storage.Driver)
	}
	if cfg.Sessions.UpdateDedupeTTL != 2*time.Hour {
		t.Errorf("dedupe ttl = %v", cfg.Sessions.UpdateDedupeTTL)
	}
	if cfg.Payments.Currency != "USD" {
		t.Errorf("currency = %q", cfg.Payments.Currency)
	}

	opts, err := cfg.ShippingOptions()
	if err != nil {
		t.Fatalf("ShippingOptions failed: %v", err)
	}
	if len(opts) != 2 || opts[1].Price != 20000 {
		t.Errorf("shipping options = %+v", opts)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown driver", "storage:\n  driver: oracle\n", "storage.driver"},
		{"mysql without dsn", "storage:\n  driver: mysql\n  dsn: \"\"\n", "storage.dsn"},
		{"unknown session backend", "sessions:\n  backend: memcached\n", "sessions.backend"},
		{"webhook without url", "telegram:\n  mode: webhook\n", "webhook_url"},
		{"bad currency", "payments:\n  currency: rubles\n", "payments.currency"},
		{"float shipping price", "payments:\n  shipping_options:\n    - id: a\n      title: A\n      price: \"1.234\"\n", "shipping_options"},
		{"zero workers", "orders:\n  workers: 0\n", "orders.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_BadAdminIDFromEnv(t *testing.T) {
	t.Setenv("ADMIN_USER_ID", "boss")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-numeric ADMIN_USER_ID")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRequireBot(t *testing.T) {
	cfg := Default()
	if err := cfg.RequireBot(); err == nil {
		t.Error("expected error without token")
	}
	cfg.Telegram.Token = "t"
	if err := cfg.RequireBot(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

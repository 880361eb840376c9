package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/storefront-bot/storefront/internal/core/domain"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Telegram TelegramConfig `yaml:"telegram"`
	Admin    AdminConfig    `yaml:"admin"`
	Storage  StorageConfig  `yaml:"storage"`
	Sessions SessionsConfig `yaml:"sessions"`
	Payments PaymentsConfig `yaml:"payments"`
	Server   ServerConfig   `yaml:"server"`
	Orders   OrdersConfig   `yaml:"orders"`
}

type AppConfig struct {
	Env       string `yaml:"env"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

type TelegramConfig struct {
	Token         string `yaml:"token"`
	Mode          string `yaml:"mode"`
	WebhookURL    string `yaml:"webhook_url"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type AdminConfig struct {
	// UserID is the only chat user allowed to remove catalog items. Zero
	// disables the admin commands.
	UserID   int64  `yaml:"user_id"`
	APIToken string `yaml:"api_token"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type SessionsConfig struct {
	Backend         string        `yaml:"backend"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	UpdateDedupeTTL time.Duration `yaml:"update_dedupe_ttl"`
}

type PaymentsConfig struct {
	ProviderToken   string                 `yaml:"provider_token"`
	Currency        string                 `yaml:"currency"`
	Title           string                 `yaml:"title"`
	Description     string                 `yaml:"description"`
	ShippingOptions []ShippingOptionConfig `yaml:"shipping_options"`
}

type ShippingOptionConfig struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	// Price is a decimal string in major units, e.g. "200.00".
	Price string `yaml:"price"`
}

type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
}

type OrdersConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

const (
	SessionsSQL   = "sql"
	SessionsRedis = "redis"
)

func Default() Config {
	return Config{
		App: AppConfig{Env: "dev", LogLevel: "info", LogFormat: "json"},
		Telegram: TelegramConfig{
			Mode: "long_polling",
		},
		Storage:  StorageConfig{Driver: "sqlite", DSN: "data/storefront.sqlite3"},
		Sessions: SessionsConfig{Backend: SessionsSQL, RedisAddr: "localhost:6379", UpdateDedupeTTL: 24 * time.Hour},
		Payments: PaymentsConfig{
			Currency:    "RUB",
			Title:       "Order payment",
			Description: "Payment for your order in our store",
		},
		Server: ServerConfig{HTTPAddr: ":8080", GRPCAddr: ":50051"},
		Orders: OrdersConfig{Workers: 4, QueueSize: 1000},
	}
}

// Load reads the optional YAML file at path on top of the defaults, then
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.App.Env = getEnv("STOREFRONT_ENV", c.App.Env)
	c.App.LogLevel = getEnv("LOG_LEVEL", c.App.LogLevel)
	c.App.LogFormat = getEnv("LOG_FORMAT", c.App.LogFormat)

	c.Telegram.Token = getEnv("TELEGRAM_BOT_TOKEN", c.Telegram.Token)
	c.Telegram.Mode = getEnv("STOREFRONT_TELEGRAM_MODE", c.Telegram.Mode)
	c.Telegram.WebhookURL = getEnv("STOREFRONT_WEBHOOK_URL", c.Telegram.WebhookURL)
	c.Telegram.WebhookSecret = getEnv("STOREFRONT_WEBHOOK_SECRET", c.Telegram.WebhookSecret)

	var err error
	if c.Admin.UserID, err = getEnvInt64("ADMIN_USER_ID", c.Admin.UserID); err != nil {
		return err
	}
	c.Admin.APIToken = getEnv("STOREFRONT_ADMIN_TOKEN", c.Admin.APIToken)

	c.Storage.Driver = getEnv("STOREFRONT_DB_DRIVER", c.Storage.Driver)
	c.Storage.DSN = getEnv("STOREFRONT_DB_DSN", c.Storage.DSN)

	c.Sessions.Backend = getEnv("STOREFRONT_SESSION_BACKEND", c.Sessions.Backend)
	c.Sessions.RedisAddr = getEnv("REDIS_ADDR", c.Sessions.RedisAddr)
	c.Sessions.RedisPassword = getEnv("REDIS_PASSWORD", c.Sessions.RedisPassword)
	c.Sessions.RedisDB = getEnvInt("REDIS_DB", c.Sessions.RedisDB)

	c.Payments.ProviderToken = getEnv("PAYMENTS_PROVIDER_TOKEN", c.Payments.ProviderToken)
	c.Payments.Currency = getEnv("STOREFRONT_CURRENCY", c.Payments.Currency)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)

	c.Orders.Workers = getEnvInt("STOREFRONT_ORDER_WORKERS", c.Orders.Workers)
	c.Orders.QueueSize = getEnvInt("STOREFRONT_ORDER_QUEUE_SIZE", c.Orders.QueueSize)
	return nil
}

// Validate normalises the configuration and rejects values the server cannot
// start with. The Telegram token is checked by RequireBot since offline
// commands do not need it.
func (c *Config) Validate() error {
	var errs []error

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q: must be sqlite, mysql or postgres", c.Storage.Driver))
	}
	if c.Storage.Driver != "sqlite" && c.Storage.DSN == "" {
		errs = append(errs, errors.New("storage.dsn is required"))
	}

	c.Sessions.Backend = strings.ToLower(strings.TrimSpace(c.Sessions.Backend))
	switch c.Sessions.Backend {
	case SessionsSQL:
	case SessionsRedis:
		if c.Sessions.RedisAddr == "" {
			errs = append(errs, errors.New("sessions.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("sessions.backend %q: must be sql or redis", c.Sessions.Backend))
	}
	if c.Sessions.UpdateDedupeTTL <= 0 {
		c.Sessions.UpdateDedupeTTL = 24 * time.Hour
	}

	switch c.Telegram.Mode {
	case "long_polling":
	case "webhook":
		if c.Telegram.WebhookURL == "" {
			errs = append(errs, errors.New("telegram.webhook_url is required in webhook mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("telegram.mode %q: must be long_polling or webhook", c.Telegram.Mode))
	}

	if c.Admin.UserID < 0 {
		errs = append(errs, errors.New("admin.user_id must not be negative"))
	}

	c.Payments.Currency = strings.ToUpper(strings.TrimSpace(c.Payments.Currency))
	if len(c.Payments.Currency) != 3 {
		errs = append(errs, fmt.Errorf("payments.currency %q: must be a 3-letter code", c.Payments.Currency))
	}
	if _, err := c.ShippingOptions(); err != nil {
		errs = append(errs, err)
	}

	if c.Orders.Workers <= 0 {
		errs = append(errs, errors.New("orders.workers must be positive"))
	}
	if c.Orders.QueueSize <= 0 {
		errs = append(errs, errors.New("orders.queue_size must be positive"))
	}

	return errors.Join(errs...)
}

// RequireBot reports whether the settings needed to talk to Telegram are set.
func (c *Config) RequireBot() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram token is required (TELEGRAM_BOT_TOKEN)")
	}
	return nil
}

// ShippingOptions converts the configured options to minor units.
func (c *Config) ShippingOptions() ([]domain.ShippingOption, error) {
	out := make([]domain.ShippingOption, 0, len(c.Payments.ShippingOptions))
	seen := make(map[string]bool)
	for _, opt := range c.Payments.ShippingOptions {
		if opt.ID == "" || opt.Title == "" {
			return nil, errors.New("payments.shipping_options: id and title are required")
		}
		if seen[opt.ID] {
			return nil, fmt.Errorf("payments.shipping_options: duplicate id %q", opt.ID)
		}
		seen[opt.ID] = true

		price, err := domain.ParseMoney(opt.Price)
		if err != nil {
			return nil, fmt.Errorf("payments.shipping_options %q: %w", opt.ID, err)
		}
		out = append(out, domain.ShippingOption{ID: opt.ID, Title: opt.Title, Price: price})
	}
	return out, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

func getEnvInt64(key string, def int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

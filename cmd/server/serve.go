package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/storefront-bot/storefront/internal/adapter/handler"
	"github.com/storefront-bot/storefront/internal/adapter/storage"
	"github.com/storefront-bot/storefront/internal/config"
	"github.com/storefront-bot/storefront/internal/core/service"
	"github.com/storefront-bot/storefront/internal/metrics"
	"github.com/storefront-bot/storefront/internal/port"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot together with the HTTP and gRPC admin servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireBot(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	m := metrics.New()

	// Initialize database
	store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("connected to database", "driver", store.Dialect())

	checks := map[string]handler.Pinger{"database": store}

	// Session store and update dedupe
	var sessions port.SessionRepository = store
	var dedupe port.CacheRepository = storage.NewMemoryCache(cfg.Sessions.UpdateDedupeTTL)

	if cfg.Sessions.Backend == config.SessionsRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Sessions.RedisAddr,
			Password: cfg.Sessions.RedisPassword,
			DB:       cfg.Sessions.RedisDB,
			PoolSize: 100,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		log.Info("connected to redis", "addr", cfg.Sessions.RedisAddr)

		redisAdapter := storage.NewRedisAdapter(rdb, cfg.Sessions.UpdateDedupeTTL)
		sessions = redisAdapter
		dedupe = redisAdapter
		checks["redis"] = redisAdapter
	}

	shipping, err := cfg.ShippingOptions()
	if err != nil {
		return err
	}

	// Initialize services
	catalog := service.NewCatalogService(store)
	cart := service.NewCartService(store, cfg.Payments.Currency)
	checkout := service.NewCheckoutService(cart, service.CheckoutConfig{
		Currency:        cfg.Payments.Currency,
		Title:           cfg.Payments.Title,
		Description:     cfg.Payments.Description,
		ShippingOptions: shipping,
	})
	orders := service.NewOrderService(cart, cfg.Orders.QueueSize)
	conversation := service.NewConversationService(service.ConversationDeps{
		Catalog:     catalog,
		Cart:        cart,
		Checkout:    checkout,
		Orders:      orders,
		Sessions:    sessions,
		AdminUserID: cfg.Admin.UserID,
		Logger:      log,
		Metrics:     m,
	})

	// Start order workers
	var workers sync.WaitGroup
	for i := 0; i < cfg.Orders.Workers; i++ {
		workers.Add(1)
		go func(id int) {
			defer workers.Done()
			service.RunOrderWorker(id, orders.GetOrderQueue(), store, log, m)
		}(i)
	}
	log.Info("started order workers", "count", cfg.Orders.Workers)

	// Initialize Telegram bot
	tg := handler.NewTelegramHandler(conversation, checkout, dedupe, handler.TelegramConfig{
		Mode:          cfg.Telegram.Mode,
		WebhookURL:    cfg.Telegram.WebhookURL,
		WebhookSecret: cfg.Telegram.WebhookSecret,
		ProviderToken: cfg.Payments.ProviderToken,
		AdminUserID:   cfg.Admin.UserID,
	}, log, m)
	b, err := handler.NewBot(cfg.Telegram.Token, cfg.Telegram.WebhookSecret, tg)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	var webhook http.Handler
	if cfg.Telegram.Mode == handler.ModeWebhook {
		webhook = b.WebhookHandler()
	}

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(catalog, cfg.Payments.Currency, cfg.Admin.APIToken, checks, log)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           httpHandler.Routes(m, webhook),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Initialize gRPC server
	grpcServer, healthServer := handler.NewGRPCServer(
		handler.NewGRPCHandler(catalog, cfg.Payments.Currency, log),
		cfg.Admin.APIToken,
		log,
	)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("gRPC server listening", "addr", cfg.Server.GRPCAddr)
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		return tg.Run(gctx)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown", "error", err)
		}
		log.Info("HTTP server stopped")

		healthServer.Shutdown()
		grpcServer.GracefulStop()
		log.Info("gRPC server stopped")
		return nil
	})

	err = g.Wait()

	// Close order queue and wait for workers
	orders.Close()
	workers.Wait()
	log.Info("workers stopped")

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

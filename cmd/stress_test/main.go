package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/storefront-bot/storefront/internal/adapter/storage"
	"github.com/storefront-bot/storefront/internal/core/domain"
	"github.com/storefront-bot/storefront/internal/core/service"
)

type options struct {
	driver  string
	dsn     string
	users   int
	rounds  int
	presses int
}

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:          "stress_test",
		Short:        "Drive many concurrent shoppers through the conversation and check their carts",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.driver, "driver", "sqlite", "database driver (sqlite, mysql, postgres)")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "database DSN; a temporary SQLite file when empty")
	cmd.Flags().IntVar(&opts.users, "users", 50, "concurrent users")
	cmd.Flags().IntVar(&opts.rounds, "rounds", 10, "add-to-cart rounds per user")
	cmd.Flags().IntVar(&opts.presses, "presses", 5, "concurrent increment presses per round")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if opts.driver == "sqlite" && opts.dsn == "" {
		dir, err := os.MkdirTemp("", "storefront-stress")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		opts.dsn = filepath.Join(dir, "stress.sqlite3")
	}

	store, err := storage.Open(ctx, opts.driver, opts.dsn)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	item, err := store.CreateItem(ctx, domain.Item{Name: "Stress burger", Price: 250})
	if err != nil {
		return fmt.Errorf("seed item: %w", err)
	}

	cart := service.NewCartService(store, "RUB")
	svc := service.NewConversationService(service.ConversationDeps{
		Catalog:  service.NewCatalogService(store),
		Cart:     cart,
		Checkout: service.NewCheckoutService(cart, service.CheckoutConfig{Currency: "RUB"}),
		Orders:   service.NewOrderService(cart, 1),
		Sessions: store,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	// Counters
	var events atomic.Int64

	// Each round selects the item, fires presses concurrent increment presses
	// for the same user and confirms, so every round adds presses+1 units.
	var wg sync.WaitGroup
	start := time.Now()
	baseUser := time.Now().UnixNano() % 1_000_000_000

	for u := 0; u < opts.users; u++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			for r := 0; r < opts.rounds; r++ {
				shopRound(ctx, svc, userID, item.ID, opts.presses, &events)
			}
		}(baseUser + int64(u))
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Verify every cart
	want := opts.rounds * (opts.presses + 1)
	mismatched := 0
	for u := 0; u < opts.users; u++ {
		line, err := store.GetCartLine(ctx, baseUser+int64(u), item.ID)
		if err != nil || line.Quantity != want {
			mismatched++
		}
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Driver:           %s\n", opts.driver)
	fmt.Printf("Users:            %d\n", opts.users)
	fmt.Printf("Rounds per user:  %d\n", opts.rounds)
	fmt.Printf("Events handled:   %d\n", events.Load())
	fmt.Printf("Carts mismatched: %d\n", mismatched)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Printf("Events/sec:       %.0f\n", float64(events.Load())/elapsed.Seconds())
	fmt.Println("==========================================")

	if mismatched == 0 {
		fmt.Printf("PASS: every cart holds %d units\n", want)
		return nil
	}
	return fmt.Errorf("FAIL: %d carts do not hold the expected quantity", mismatched)
}

func shopRound(ctx context.Context, svc *service.ConversationService, userID, itemID int64, presses int, events *atomic.Int64) {
	press := func(p domain.Payload) {
		events.Add(1)
		svc.Handle(ctx, domain.Event{Kind: domain.EventButton, UserID: userID, ChatID: userID, MessageID: 1, Payload: p})
	}

	press(domain.SelectPayload(itemID))

	var wg sync.WaitGroup
	for i := 0; i < presses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			press(domain.IncrementPayload(itemID))
		}()
	}
	wg.Wait()

	press(domain.ConfirmAddPayload(itemID))
}

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"gopkg.in/yaml.v3"

	"github.com/storefront-bot/storefront/internal/adapter/handler"
	"github.com/storefront-bot/storefront/internal/adapter/storage"
	"github.com/storefront-bot/storefront/internal/config"
	"github.com/storefront-bot/storefront/internal/core/domain"
	"github.com/storefront-bot/storefront/internal/core/service"
)

func openStore(ctx context.Context, cfg config.Config) (*storage.SQLAdapter, error) {
	store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			log.Info("schema is up to date", "driver", store.Dialect())
			return nil
		},
	}
}

type seedFile struct {
	Items []seedItem `yaml:"items"`
}

type seedItem struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
}

func readSeedFile(path string) ([]seedItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f.Items, nil
}

func seedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Add catalog items from a YAML file",
		Long: `Add catalog items from a YAML file.

The file lists items with prices in major units:

  items:
    - name: Classic
      description: Beef, cheddar, pickles
      price: "5.00"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			items, err := readSeedFile(file)
			if err != nil {
				return err
			}

			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			catalog := service.NewCatalogService(store)
			for _, it := range items {
				price, err := domain.ParseMoney(it.Price)
				if err != nil {
					return fmt.Errorf("item %q: %w", it.Name, err)
				}
				created, err := catalog.CreateItem(cmd.Context(), it.Name, it.Description, price)
				if err != nil {
					return fmt.Errorf("item %q: %w", it.Name, err)
				}
				log.Info("created item", "id", created.ID, "name", created.Name,
					"price", domain.FormatMoney(created.Price, cfg.Payments.Currency))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "catalog.yaml", "YAML file with the items to add")
	return cmd
}

func removeItemCmd() *cobra.Command {
	var grpcAddr string

	cmd := &cobra.Command{
		Use:   "remove-item [id]",
		Short: "Remove a catalog item and every cart line that references it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid item id %q", args[0])
			}

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			if grpcAddr != "" {
				conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
				if err != nil {
					return fmt.Errorf("dial %s: %w", grpcAddr, err)
				}
				defer conn.Close()
				if err := handler.NewCatalogAdminClient(conn, cfg.Admin.APIToken).RemoveItem(cmd.Context(), id); err != nil {
					return err
				}
				log.Info("removed item", "id", id, "via", grpcAddr)
				return nil
			}

			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := service.NewCatalogService(store).RemoveItem(cmd.Context(), id); err != nil {
				return err
			}
			log.Info("removed item", "id", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "remove through a running server's admin API instead of the database")
	return cmd
}

package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/cloud-kitchen/db"
	"github.com/xenking/cloud-kitchen/internal/domain/auth"
	"github.com/xenking/cloud-kitchen/internal/domain/menu"
	"github.com/xenking/cloud-kitchen/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		menuFile    string
		apiKey      string
		pepper      string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&menuFile, "menu-file", "", "path to menu JSON file (.json or .json.gz); embedded menu when empty")
	flag.StringVar(&apiKey, "api-key", "", "checkout API key to seed (or KITCHEN_SEED_API_KEY env)")
	flag.StringVar(&pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or KITCHEN_AUTH_PEPPER env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if apiKey == "" {
		apiKey = os.Getenv("KITCHEN_SEED_API_KEY")
	}
	if pepper == "" {
		pepper = os.Getenv("KITCHEN_AUTH_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, menuFile, apiKey, pepper); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, menuFile, apiKey, pepper string) error {
	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedMenu(ctx, lg, postgres.NewMenuRepository(pool), menuFile); err != nil {
		return errors.Wrap(err, "seed menu")
	}

	if apiKey == "" {
		lg.Info("No API key given, skipping")
		return nil
	}
	if err := seedAPIKey(ctx, lg, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func seedMenu(ctx context.Context, lg *zap.Logger, repo *postgres.MenuRepository, menuFile string) error {
	var (
		items []menu.Item
		err   error
	)
	if menuFile == "" {
		items, err = menu.Load(bytes.NewReader(db.MenuSeed))
	} else {
		items, err = menu.LoadFile(menuFile)
	}
	if err != nil {
		return err
	}

	lg.Info("Upserting menu items", zap.Int("count", len(items)))
	if err := repo.Upsert(ctx, items); err != nil {
		return err
	}
	for _, it := range items {
		lg.Debug("Upserted menu item", zap.Int("id", it.ID), zap.String("name", it.Name))
	}
	return nil
}

func seedAPIKey(ctx context.Context, lg *zap.Logger, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	info := auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashKey([]byte(pepper), apiKey),
		Name:    "Default checkout key",
		Scopes:  []string{auth.ScopeCheckout},
	}
	if err := repo.Upsert(ctx, info); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}
	lg.Info("Upserted API key", zap.String("id", info.ID), zap.String("name", info.Name))
	return nil
}

package app

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/cloud-kitchen/db"
	"github.com/xenking/cloud-kitchen/internal/domain/address"
	"github.com/xenking/cloud-kitchen/internal/domain/auth"
	"github.com/xenking/cloud-kitchen/internal/domain/menu"
	"github.com/xenking/cloud-kitchen/internal/domain/order"
	"github.com/xenking/cloud-kitchen/internal/storage/memory"
	"github.com/xenking/cloud-kitchen/internal/storage/postgres"
	"github.com/xenking/cloud-kitchen/pkg/health"
)

// storage groups the repositories selected by configuration.
type storage struct {
	menu      menu.Repository
	orders    order.Repository
	addresses address.Repository
	keys      auth.Repository
	close     func()
}

// Close releases underlying connections.
func (s *storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// openStorage returns PostgreSQL repositories when a database URL is
// configured and in-memory ones otherwise.
func openStorage(ctx context.Context, lg *zap.Logger, cfg *Config, hc *health.Checker) (*storage, error) {
	if cfg.DatabaseURL == "" {
		items, err := loadMenu(cfg.MenuFile)
		if err != nil {
			return nil, err
		}
		lg.Info("Using in-memory storage", zap.Int("menu_items", len(items)))
		return &storage{
			menu:      memory.NewMenuRepository(items),
			orders:    memory.NewOrderRepository(),
			addresses: memory.NewAddressRepository(),
			keys:      memory.NewAPIKeyRepository(configuredKeys(cfg.Auth)...),
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	hc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))

	menuRepo := postgres.NewMenuRepository(pool)
	if cfg.MenuFile != "" {
		items, err := menu.LoadFile(cfg.MenuFile)
		if err != nil {
			pool.Close()
			return nil, err
		}
		if err := menuRepo.Upsert(ctx, items); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "seed menu")
		}
		lg.Info("Menu seeded", zap.String("file", cfg.MenuFile), zap.Int("items", len(items)))
	}

	lg.Info("Using PostgreSQL storage")
	return &storage{
		menu:      menuRepo,
		orders:    postgres.NewOrderRepository(pool),
		addresses: postgres.NewAddressRepository(pool),
		keys:      postgres.NewAPIKeyRepository(pool),
		close:     pool.Close,
	}, nil
}

// loadMenu reads path, or the embedded menu when path is empty.
func loadMenu(path string) ([]menu.Item, error) {
	if path != "" {
		return menu.LoadFile(path)
	}
	items, err := menu.Load(bytes.NewReader(db.MenuSeed))
	if err != nil {
		return nil, errors.Wrap(err, "load embedded menu")
	}
	return items, nil
}

// configuredKeys hashes raw keys from configuration as checkout keys.
func configuredKeys(cfg AuthConfig) []auth.APIKeyInfo {
	keys := make([]auth.APIKeyInfo, 0, len(cfg.Keys))
	for i, raw := range cfg.Keys {
		if raw == "" {
			continue
		}
		keys = append(keys, auth.APIKeyInfo{
			ID:      "config-" + strconv.Itoa(i+1),
			KeyHash: auth.HashKey([]byte(cfg.Pepper), raw),
			Name:    "configured key",
			Scopes:  []string{auth.ScopeCheckout},
		})
	}
	return keys
}

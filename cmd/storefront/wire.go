package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/config"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/db"
	storefrontHttp "github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/handler/http"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/idempotency"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/memstore"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/order"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/user"
)

// buildServices wires storage, pricing and idempotency according to cfg.
// cleanup releases every connection that was opened. On error everything is
// already released.
func buildServices(ctx context.Context, cfg *config.Config) (storefrontHttp.Services, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var (
		flashSales catalog.FlashSales
		keys       idempotency.Store
	)
	if cfg.Redis.URL != "" {
		client, err := db.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return storefrontHttp.Services{}, nil, err
		}
		closers = append(closers, func() { _ = client.Close() })

		flashSales = catalog.NewRedisFlashSales(client)
		keys = idempotency.NewRedisStore(client, cfg.App.IdempotencyTTL)
	}

	var services storefrontHttp.Services
	switch cfg.App.Storage {
	case config.StorageMemory:
		store := memstore.New()
		if cfg.App.SeedPath != "" {
			if err := store.LoadSeedFile(cfg.App.SeedPath); err != nil {
				cleanup()
				return storefrontHttp.Services{}, nil, fmt.Errorf("failed to load seed: %w", err)
			}
		}
		if flashSales == nil {
			flashSales = store.FlashSales()
			keys = store.Idempotency()
		}
		log.Warn().Msg("Using in-memory storage, data is lost on restart")

		users := user.NewService(store.Users())
		products := catalog.NewService(store.Catalog(), flashSales)
		carts := cart.NewService(store.Carts(), store, users, store.Catalog())
		orders := order.NewService(store, store.Orders(), store.OrderQueries(), carts, users, products,
			order.WithIdempotency(keys))

		services = storefrontHttp.Services{Carts: carts, Orders: orders, Products: products}

	default:
		pg, err := db.New(ctx, cfg.Postgres)
		if err != nil {
			cleanup()
			return storefrontHttp.Services{}, nil, err
		}
		closers = append(closers, pg.Close)

		if err := pg.ApplyMigrations(); err != nil {
			cleanup()
			return storefrontHttp.Services{}, nil, err
		}

		sqlxDB := pg.SQLX()
		closers = append(closers, func() { _ = sqlxDB.Close() })

		tx := db.NewTxManager(pg.Pool)
		productRepo := catalog.NewRepository(pg.Pool)

		users := user.NewService(user.NewRepository(pg.Pool))
		products := catalog.NewService(productRepo, flashSales)
		carts := cart.NewService(cart.NewRepository(pg.Pool), tx, users, productRepo)

		var opts []order.Option
		if keys != nil {
			opts = append(opts, order.WithIdempotency(keys))
		} else {
			log.Warn().Msg("REDIS_URL is not set, Idempotency-Key headers are ignored")
		}
		orders := order.NewService(tx, order.NewRepository(pg.Pool), order.NewQueryRepository(sqlxDB), carts, users, products, opts...)

		services = storefrontHttp.Services{Carts: carts, Orders: orders, Products: products}
	}

	return services, cleanup, nil
}

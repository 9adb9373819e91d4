// Package bootstrap connects the runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"strings"

	"scribe/internal/cache"
	"scribe/internal/config"
	"scribe/internal/database"
	"scribe/internal/repository"
	"scribe/internal/seed"

	"github.com/redis/go-redis/v9"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty development store with generated data.
	SeedDemo bool
}

// InitRuntime connects to the configured store and Redis and optionally seeds demo data.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*repository.Store, *redis.Client, error) {
	store, err := ConnectStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDemo {
		if err := seedDemo(ctx, cfg, store); err != nil {
			_ = store.Close(ctx)
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return store, r, nil
}

// ConnectStore opens the store selected by STORE_DRIVER and prepares its schema.
func ConnectStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, db, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("mongo connection failed: %w", err)
		}
		if err := database.EnsureMongoSchema(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("mongo schema setup failed: %w", err)
		}
		return repository.NewMongoStore(client, db), nil
	case config.StorePostgres, config.StoreSQLite:
		db, err := database.ConnectSQL(cfg)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		return repository.NewGormStore(db, cfg.StoreDriver), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func seedDemo(ctx context.Context, cfg *config.Config, store *repository.Store) error {
	if !strings.EqualFold(cfg.Env, "development") {
		return nil
	}

	s := seed.NewSeeder(store, seed.Options{NumUsers: 5, NumPosts: 20, MaxDays: 60})
	empty, err := s.IsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}

	res, err := s.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("development demo data seeded: %d users, %d posts (password %q)", res.Users, res.Posts, seed.DefaultPassword)
	return nil
}

// Package infra opens the optional Postgres and Redis backends.
package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/stellarpass/stellarpass/internal/config"
)

const dialTimeout = 5 * time.Second

// Backends holds the connections named by the configuration. Either may be nil.
type Backends struct {
	DB    *pgxpool.Pool
	Cache *redis.Client
}

// Open connects to Postgres when DATABASE_URL is set and to Redis when REDIS_URL is set.
func Open(ctx context.Context, cfg config.Config) (*Backends, error) {
	b := &Backends{}
	var err error
	if cfg.DatabaseURL != "" {
		if b.DB, err = NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName); err != nil {
			return nil, err
		}
	}
	if cfg.RedisURL != "" {
		if b.Cache, err = NewRedisClient(ctx, cfg.RedisURL); err != nil {
			b.Close()
			return nil, err
		}
	}
	return b, nil
}

// Close releases every open connection.
func (b *Backends) Close() error {
	if b == nil {
		return nil
	}
	var errs []error
	if b.DB != nil {
		b.DB.Close()
	}
	if b.Cache != nil {
		errs = append(errs, b.Cache.Close())
	}
	return errors.Join(errs...)
}

// NewPostgresPool configures a connection pool tagged with appName and verifies it.
func NewPostgresPool(ctx context.Context, url, appName string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if appName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = appName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// NewRedisClient configures a Redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = dialTimeout
	}

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

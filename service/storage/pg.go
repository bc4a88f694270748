package storage

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

var (
	pgOnce sync.Once
	pgPool *pgxpool.Pool
)

// InitPG opens the pgx pool and verifies connectivity. Unlike the cache, the
// durable store is the ground truth: a failure here is fatal to boot.
func InitPG(ctx context.Context, databaseURL string) error {
	var initErr error
	pgOnce.Do(func() {
		pool, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			initErr = errors.Wrap(err, "pgxpool new")
			return
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			initErr = errors.Wrap(err, "pg ping")
			pool.Close()
			return
		}
		pgPool = pool
	})
	return initErr
}

func GetPG() *pgxpool.Pool {
	if pgPool == nil {
		panic("postgres not initialized, call InitPG first")
	}
	return pgPool
}

func ClosePG() {
	if pgPool != nil {
		pgPool.Close()
	}
}

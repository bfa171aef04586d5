package health

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/digicoders-git/ksmedical-backend/internal/store"
)

// Deps probes the Mongo and Redis connections backing the service.
type Deps struct {
	DB    *store.Store
	Redis *redis.Client
}

var _ Checker = Deps{}

func (d Deps) PingDB(ctx context.Context, timeout time.Duration) error {
	return d.DB.Ping(ctx, timeout)
}

func (d Deps) PingRedis(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Redis.Ping(ctx).Err()
}

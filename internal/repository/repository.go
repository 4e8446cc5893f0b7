package repository

import (
	"context"
	"time"

	"github.com/ed-residency/resident-scheduler/internal/config"
	"github.com/redis/go-redis/v9"
)

// Store 是 repository 用到的 redis 命令子集，*redis.Client 满足这个接口
type Store interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

type Repository struct {
	cfg   *config.Config
	store Store
}

func NewRepository(cfg *config.Config, store Store) *Repository {
	return &Repository{
		cfg:   cfg,
		store: store,
	}
}

func (r *Repository) operationTimeout() time.Duration {
	return time.Duration(r.cfg.Redis.OperationExpiration) * time.Second
}

func (r *Repository) jobExpiration() time.Duration {
	return time.Duration(r.cfg.Redis.JobExpiration) * time.Second
}

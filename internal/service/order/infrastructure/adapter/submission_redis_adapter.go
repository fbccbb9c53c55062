package adapter

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// SubmissionRedisAdapter 是 port.SubmissionGuard 接口的 Redis 实现，基于 SETNX。
type SubmissionRedisAdapter struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewSubmissionRedisAdapter 创建适配器；ttl 过后占位自动失效，数据库唯一索引仍然生效。
func NewSubmissionRedisAdapter(client *goredis.Client, ttl time.Duration) *SubmissionRedisAdapter {
	return &SubmissionRedisAdapter{client: client, ttl: ttl}
}

func (a *SubmissionRedisAdapter) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := a.client.SetNX(ctx, key, time.Now().Unix(), a.ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "setnx %s", key)
	}
	return ok, nil
}

func (a *SubmissionRedisAdapter) Release(ctx context.Context, key string) error {
	return errors.Wrapf(a.client.Del(ctx, key).Err(), "del %s", key)
}

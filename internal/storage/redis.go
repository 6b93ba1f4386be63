package storage

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

// redisStore 把每个键保存为一个 Redis 字符串，值不设置过期时间，
// 以便进程重启后恢复完整状态。
type redisStore struct {
	client *redis.Client
}

// NewRedisStore 创建一个基于 Redis 的键值存储。
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

// Get 返回指定键的值，键不存在时返回 ErrNotFound。
func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set 写入指定键的值。
func (s *redisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// Del 删除指定键。删除不存在的键不算错误。
func (s *redisStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

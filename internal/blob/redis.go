package blob

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "uploads:"

// RedisStore keeps blobs as binary values in Redis. Useful when the server
// runs somewhere without a persistent disk.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Write(ctx context.Context, name string, data []byte) (string, error) {
	if !safeName(name) {
		return "", fmt.Errorf("unsafe blob name %q", name)
	}
	if err := s.rdb.Set(ctx, redisKeyPrefix+name, data, 0).Err(); err != nil {
		return "", err
	}
	return "/uploads/" + name, nil
}

func (s *RedisStore) Read(ctx context.Context, name string) ([]byte, error) {
	if !safeName(name) {
		return nil, os.ErrNotExist
	}
	data, err := s.rdb.Get(ctx, redisKeyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, os.ErrNotExist
	}
	return data, err
}

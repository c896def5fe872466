package countstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisCountPrefix = "botfleet/count/"

type RedisCountStore struct {
	Client *redis.Client
}

func NewRedisCountStore(redisURL string) (*RedisCountStore, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
		return nil, err
	}
	return &RedisCountStore{Client: rdb}, nil
}

func (s *RedisCountStore) GetCount(ctx context.Context, name string, at time.Time) (int, error) {
	c, err := s.Client.Get(ctx, redisCountPrefix+hourBucket(name, at)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return c, nil
}

func (s *RedisCountStore) Increment(ctx context.Context, name string, at time.Time) error {
	key := redisCountPrefix + hourBucket(name, at)

	multi := s.Client.Pipeline()
	multi.Incr(ctx, key)
	multi.Expire(ctx, key, 2*time.Hour)
	_, err := multi.Exec(ctx)
	return err
}

func (s *RedisCountStore) Close() error {
	return s.Client.Close()
}

package chatstore

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "chefbot:"

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// redisKV is the subset of *redis.Client used by RedisBackend.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

type RedisBackend struct {
	client redisKV
	prefix string
}

var _ Backend = &RedisBackend{}

func NewRedisBackend(opts RedisOptions) (*RedisBackend, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, errors.New("redis chat backend: empty addr")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return newRedisBackend(client, opts.Prefix), nil
}

func newRedisBackend(client redisKV, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if b == nil || b.client == nil {
		return nil, false, errors.New("redis chat backend: client is nil")
	}
	data, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "redis chat backend: get")
	}
	return data, true, nil
}

func (b *RedisBackend) Save(ctx context.Context, key string, data []byte) error {
	if b == nil || b.client == nil {
		return errors.New("redis chat backend: client is nil")
	}
	if err := b.client.Set(ctx, b.prefix+key, data, 0).Err(); err != nil {
		return errors.Wrap(err, "redis chat backend: set")
	}
	return nil
}

func (b *RedisBackend) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}

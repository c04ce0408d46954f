package chatstore

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Backend is the durable key/value medium behind the Store. A single key holds
// the whole serialized session collection.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// BackendSettings selects and configures a Backend.
type BackendSettings struct {
	Kind          string `mapstructure:"store" yaml:"store" glazed:"store"`
	Dir           string `mapstructure:"store-dir" yaml:"store-dir" glazed:"store-dir"`
	SQLitePath    string `mapstructure:"sqlite-path" yaml:"sqlite-path" glazed:"sqlite-path"`
	RedisAddr     string `mapstructure:"redis-addr" yaml:"redis-addr" glazed:"redis-addr"`
	RedisPassword string `mapstructure:"redis-password" yaml:"redis-password" glazed:"redis-password"`
	RedisDB       int    `mapstructure:"redis-db" yaml:"redis-db" glazed:"redis-db"`
	RedisPrefix   string `mapstructure:"redis-prefix" yaml:"redis-prefix" glazed:"redis-prefix"`
}

// OpenBackend builds the backend described by s.
func OpenBackend(s BackendSettings) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s.Kind)) {
	case "", BackendFile:
		return NewFileBackend(s.Dir)
	case BackendSQLite:
		path := s.SQLitePath
		if strings.TrimSpace(path) == "" {
			if strings.TrimSpace(s.Dir) == "" {
				return nil, errors.New("chatstore: sqlite backend needs sqlite-path or store-dir")
			}
			path = filepath.Join(s.Dir, "chefbot.db")
		}
		dsn, err := SQLiteDSNForFile(path)
		if err != nil {
			return nil, err
		}
		return NewSQLiteBackend(dsn)
	case BackendRedis:
		return NewRedisBackend(RedisOptions{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
			Prefix:   s.RedisPrefix,
		})
	case BackendMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, errors.Errorf("chatstore: unknown store backend %q", s.Kind)
	}
}

// Package config loads the settings of the chefbot commands from viper.
// Values come from flags, CHEFBOT_* environment variables and
// ~/.chefbot/config.yaml, in that order of precedence.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/go-go-golems/chefbot/pkg/backend"
	"github.com/go-go-golems/chefbot/pkg/persistence/chatstore"
	"github.com/go-go-golems/chefbot/pkg/redisstream"
	"github.com/go-go-golems/chefbot/pkg/reveal"
)

const (
	AppName = "chefbot"

	DefaultRelayURL     = "http://127.0.0.1:8081/api/chat"
	DefaultRelayAddr    = ":8081"
	DefaultBackendURL   = "http://127.0.0.1:5000"
	DefaultBackendAddr  = ":5000"
	DefaultRelayTimeout = 2 * time.Minute

	TransportHTTP = "http"
	TransportWS   = "ws"
)

// Chat configures the interactive client.
type Chat struct {
	RelayURL    string        `mapstructure:"relay-url" yaml:"relay-url"`
	Transport   string        `mapstructure:"transport" yaml:"transport"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RevealDelay time.Duration `mapstructure:"reveal-delay" yaml:"reveal-delay"`
	Plain       bool          `mapstructure:"plain" yaml:"plain"`
	Markdown    bool          `mapstructure:"markdown" yaml:"markdown"`

	chatstore.BackendSettings `mapstructure:",squash" yaml:",inline"`
	Events                    redisstream.Settings `mapstructure:",squash" yaml:",inline"`
}

// Relay configures the relay service.
type Relay struct {
	Addr       string        `mapstructure:"addr" yaml:"addr"`
	BackendURL string        `mapstructure:"backend-url" yaml:"backend-url"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Backend configures the cooking assistant backend.
type Backend struct {
	Addr         string `mapstructure:"addr" yaml:"addr"`
	HistoryLimit int    `mapstructure:"history-limit" yaml:"history-limit"`

	backend.EngineSettings `mapstructure:",squash" yaml:",inline"`
}

// DefaultStoreDir is where chats are kept when store-dir is unset.
func DefaultStoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "."+AppName)
	}
	return filepath.Join(home, "."+AppName)
}

// SetChatDefaults registers the chat defaults on v.
func SetChatDefaults(v *viper.Viper) {
	v.SetDefault("relay-url", DefaultRelayURL)
	v.SetDefault("transport", TransportHTTP)
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("reveal-delay", reveal.DefaultDelay)
	v.SetDefault("markdown", true)
	v.SetDefault("store", chatstore.BackendFile)
	v.SetDefault("store-dir", DefaultStoreDir())
	v.SetDefault("events-topic", redisstream.DefaultTopic)
	v.SetDefault("events-redis-group", redisstream.DefaultGroup)
	v.SetDefault("events-redis-consumer", redisstream.DefaultConsumer)
}

func SetRelayDefaults(v *viper.Viper) {
	v.SetDefault("addr", DefaultRelayAddr)
	v.SetDefault("backend-url", DefaultBackendURL)
	v.SetDefault("timeout", DefaultRelayTimeout)
}

func SetBackendDefaults(v *viper.Viper) {
	v.SetDefault("addr", DefaultBackendAddr)
	v.SetDefault("history-limit", backend.DefaultHistoryLimit)
	v.SetDefault("model", backend.DefaultModel)
	v.SetDefault("temperature", backend.DefaultTemperature)
	v.SetDefault("top-p", backend.DefaultTopP)
	v.SetDefault("max-tokens", backend.DefaultMaxTokens)
}

func LoadChat(v *viper.Viper) (Chat, error) {
	var c Chat
	if err := v.Unmarshal(&c); err != nil {
		return c, errors.Wrap(err, "config: decode chat settings")
	}
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	c.BackendSettings = ResolveStore(c.BackendSettings)
	return c, c.Validate()
}

// ResolveStore fills in the default store dir and expands ~ in paths.
func ResolveStore(s chatstore.BackendSettings) chatstore.BackendSettings {
	if s.Dir == "" {
		s.Dir = DefaultStoreDir()
	}
	s.Dir = expandHome(s.Dir)
	s.SQLitePath = expandHome(s.SQLitePath)
	return s
}

func (c Chat) Validate() error {
	switch c.Transport {
	case TransportHTTP:
		if err := checkURL(c.RelayURL, "http", "https"); err != nil {
			return errors.Wrap(err, "config: relay-url")
		}
	case TransportWS:
		if err := checkURL(c.RelayURL, "ws", "wss"); err != nil {
			return errors.Wrap(err, "config: relay-url")
		}
	default:
		return errors.Errorf("config: unknown transport %q, want http or ws", c.Transport)
	}
	if c.RevealDelay < 0 {
		return errors.New("config: reveal-delay must not be negative")
	}
	if c.Timeout < 0 {
		return errors.New("config: timeout must not be negative")
	}
	switch strings.ToLower(c.Kind) {
	case "", chatstore.BackendFile, chatstore.BackendSQLite, chatstore.BackendMemory:
	case chatstore.BackendRedis:
		if c.RedisAddr == "" {
			return errors.New("config: store redis needs redis-addr")
		}
	default:
		return errors.Errorf("config: unknown store %q", c.Kind)
	}
	if c.Events.Enabled {
		if c.Events.Addr == "" {
			return errors.New("config: events-redis needs events-redis-addr")
		}
		if strings.TrimSpace(c.Events.Group) == "" {
			return errors.New("config: events-redis needs events-redis-group")
		}
		if strings.TrimSpace(c.Events.Consumer) == "" {
			return errors.New("config: events-redis needs events-redis-consumer")
		}
	}
	return nil
}

func LoadRelay(v *viper.Viper) (Relay, error) {
	var r Relay
	if err := v.Unmarshal(&r); err != nil {
		return r, errors.Wrap(err, "config: decode relay settings")
	}
	if r.Addr == "" {
		return r, errors.New("config: relay addr is empty")
	}
	if err := checkURL(r.BackendURL, "http", "https"); err != nil {
		return r, errors.Wrap(err, "config: backend-url")
	}
	return r, nil
}

func LoadBackend(v *viper.Viper) (Backend, error) {
	var b Backend
	if err := v.Unmarshal(&b); err != nil {
		return b, errors.Wrap(err, "config: decode backend settings")
	}
	if b.Addr == "" {
		return b, errors.New("config: backend addr is empty")
	}
	if b.HistoryLimit <= 0 {
		return b, errors.Errorf("config: history-limit must be positive, got %d", b.HistoryLimit)
	}
	if b.Temperature < 0 || b.Temperature > 2 {
		return b, errors.Errorf("config: temperature %v out of range [0, 2]", b.Temperature)
	}
	if b.TopP < 0 || b.TopP > 1 {
		return b, errors.Errorf("config: top-p %v out of range [0, 1]", b.TopP)
	}
	return b, nil
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if u.Host == "" {
		return errors.Errorf("%q has no host", raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return errors.Errorf("%q must use one of %s", raw, strings.Join(schemes, ", "))
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return os.ExpandEnv(p)
}

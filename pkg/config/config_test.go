package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chefbot/pkg/persistence/chatstore"
	"github.com/go-go-golems/chefbot/pkg/redisstream"
	"github.com/go-go-golems/chefbot/pkg/reveal"
)

func chatViper() *viper.Viper {
	v := viper.New()
	SetChatDefaults(v)
	return v
}

func TestLoadChat_Defaults(t *testing.T) {
	c, err := LoadChat(chatViper())
	require.NoError(t, err)
	require.Equal(t, DefaultRelayURL, c.RelayURL)
	require.Equal(t, TransportHTTP, c.Transport)
	require.Equal(t, reveal.DefaultDelay, c.RevealDelay)
	require.Zero(t, c.Timeout)
	require.True(t, c.Markdown)
	require.False(t, c.Plain)
	require.Equal(t, chatstore.BackendFile, c.Kind)
	require.Equal(t, DefaultStoreDir(), c.Dir)
	require.Equal(t, redisstream.DefaultTopic, c.Events.Topic)
	require.False(t, c.Events.Enabled)
}

func TestLoadChat_Overrides(t *testing.T) {
	dir := t.TempDir()
	v := chatViper()
	v.Set("relay-url", "ws://localhost:9000/api/ws")
	v.Set("transport", "WS")
	v.Set("reveal-delay", "5ms")
	v.Set("store", "sqlite")
	v.Set("store-dir", dir)
	v.Set("events-redis", true)
	v.Set("events-redis-addr", "localhost:6379")

	c, err := LoadChat(v)
	require.NoError(t, err)
	require.Equal(t, TransportWS, c.Transport)
	require.Equal(t, 5*time.Millisecond, c.RevealDelay)
	require.Equal(t, chatstore.BackendSQLite, c.Kind)
	require.Equal(t, dir, c.Dir)
	require.True(t, c.Events.Enabled)
	require.Equal(t, "localhost:6379", c.Events.Addr)
	require.Equal(t, redisstream.DefaultGroup, c.Events.Group)
	require.Equal(t, redisstream.DefaultConsumer, c.Events.Consumer)
}

func TestLoadChat_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	v := chatViper()
	v.Set("store-dir", "~/chats")
	c, err := LoadChat(v)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "chats"), c.Dir)
}

func TestLoadChat_Invalid(t *testing.T) {
	cases := map[string]map[string]any{
		"transport":        {"transport": "carrier-pigeon"},
		"scheme mismatch":  {"transport": "ws"},
		"missing host":     {"relay-url": "http://"},
		"negative delay":   {"reveal-delay": "-1ms"},
		"redis store":      {"store": "redis"},
		"unknown store":    {"store": "floppy"},
		"events redis":     {"events-redis": true},
		"negative timeout": {"timeout": "-1s"},
		"empty group":      {"events-redis": true, "events-redis-addr": "localhost:6379", "events-redis-group": ""},
		"empty consumer":   {"events-redis": true, "events-redis-addr": "localhost:6379", "events-redis-consumer": " "},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			v := chatViper()
			for k, val := range overrides {
				v.Set(k, val)
			}
			_, err := LoadChat(v)
			require.Error(t, err)
		})
	}
}

func TestLoadRelay(t *testing.T) {
	v := viper.New()
	SetRelayDefaults(v)
	r, err := LoadRelay(v)
	require.NoError(t, err)
	require.Equal(t, DefaultRelayAddr, r.Addr)
	require.Equal(t, DefaultBackendURL, r.BackendURL)

	v.Set("backend-url", "ftp://example.com")
	_, err = LoadRelay(v)
	require.Error(t, err)
}

func TestLoadBackend(t *testing.T) {
	v := viper.New()
	SetBackendDefaults(v)
	v.Set("api-key", "sk-test")
	b, err := LoadBackend(v)
	require.NoError(t, err)
	require.Equal(t, DefaultBackendAddr, b.Addr)
	require.Equal(t, 20, b.HistoryLimit)
	require.Equal(t, "sk-test", b.APIKey)
	require.Equal(t, "gpt-4o-mini", b.Model)

	v.Set("top-p", 1.5)
	_, err = LoadBackend(v)
	require.Error(t, err)

	v.Set("top-p", 0.9)
	v.Set("history-limit", 0)
	_, err = LoadBackend(v)
	require.Error(t, err)
}

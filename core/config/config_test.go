package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
shop:
  client_id: "client-1"
store:
  backend: memory
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, "https://api.moltin.com", cfg.Shop.BaseURL)
	assert.Equal(t, StoreBackendMemory, cfg.Store.Backend)
}

func TestNormalizeRequiresToken(t *testing.T) {
	cfg := &Config{}
	cfg.Shop.ClientID = "client-1"
	err := Normalize(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram token")
}

func TestNormalizeRequiresClientID(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "123:abc"
	err := Normalize(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shop.client_id")
}

func TestNormalizeWebhookMode(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "123:abc"
	cfg.Telegram.RunMode = "webhook"
	cfg.Shop.ClientID = "client-1"
	cfg.Store.Backend = StoreBackendMemory

	require.Error(t, Normalize(cfg), "webhook url required")

	cfg.Webhook.URL = "https://bot.example.com/hook"
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443
	require.NoError(t, Normalize(cfg))
}

func TestNormalizeRejectsUnknownStoreBackend(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "123:abc"
	cfg.Shop.ClientID = "client-1"
	cfg.Store.Backend = "etcd"

	err := Normalize(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.backend")
}

func TestNormalizeRedisBackendNeedsAddr(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "123:abc"
	cfg.Shop.ClientID = "client-1"
	cfg.Store.Backend = StoreBackendRedis

	require.Error(t, Normalize(cfg))

	cfg.Store.Redis.Addr = "127.0.0.1:6379"
	require.NoError(t, Normalize(cfg))
}

func TestShopTimeoutDefault(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "10s", cfg.ShopTimeout().String())
	cfg.Shop.TimeoutSeconds = 3
	assert.Equal(t, "3s", cfg.ShopTimeout().String())
}

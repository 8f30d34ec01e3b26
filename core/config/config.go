package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// ShopConfig describes the commerce backend the bot sells from.
type ShopConfig struct {
	ClientID string `yaml:"client_id" envconfig:"SHOP_CLIENT_ID"`
	BaseURL  string `yaml:"base_url" envconfig:"SHOP_BASE_URL"`
	// TimeoutSeconds bounds every backend call; 0 -> default
	TimeoutSeconds int `yaml:"timeout_seconds" envconfig:"SHOP_TIMEOUT_SECONDS"`
}

// RedisConfig holds connection settings for the redis session store.
type RedisConfig struct {
	Addr      string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password  string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" envconfig:"REDIS_DB"`
	KeyPrefix string `yaml:"key_prefix" envconfig:"REDIS_KEY_PREFIX"`
	// TTLHours expires idle conversations; 0 keeps them forever.
	TTLHours int `yaml:"ttl_hours" envconfig:"REDIS_TTL_HOURS"`
}

const (
	// StoreBackendMemory keeps conversation state in process memory.
	StoreBackendMemory = "memory"
	// StoreBackendRedis keeps conversation state in redis.
	StoreBackendRedis = "redis"
	// StoreBackendPostgres keeps conversation state in a sessions table.
	StoreBackendPostgres = "postgres"
)

// PostgresConfig mirrors coredatabase.Config to keep this package free of
// database imports; main maps it across at bootstrap.
type PostgresConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// StoreConfig selects and configures the conversation store backend.
type StoreConfig struct {
	Backend  string         `yaml:"backend" envconfig:"STORE_BACKEND"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// DialogConfig controls the per-chat serial event worker pool.
type DialogConfig struct {
	Workers   int `yaml:"workers" envconfig:"DIALOG_WORKERS"`
	QueueSize int `yaml:"queue_size" envconfig:"DIALOG_QUEUE_SIZE"`
}

// Config aggregates the whole bot configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Logging  LoggingConfig  `yaml:"logging"`
	Shop     ShopConfig     `yaml:"shop"`
	Store    StoreConfig    `yaml:"store"`
	Dialog   DialogConfig   `yaml:"dialog"`
}

// ShopTimeout returns the bounded timeout applied to backend calls.
func (c *Config) ShopTimeout() time.Duration {
	if c.Shop.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Shop.TimeoutSeconds) * time.Second
}

// RedisTTL returns the conversation expiry for the redis store.
func (r RedisConfig) RedisTTL() time.Duration {
	if r.TTLHours <= 0 {
		return 0
	}
	return time.Duration(r.TTLHours) * time.Hour
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if cfg.Shop.ClientID == "" {
		return fmt.Errorf("shop.client_id is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	backend := strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if backend == "" {
		backend = StoreBackendRedis
	}
	switch backend {
	case StoreBackendMemory:
	case StoreBackendRedis:
		if strings.TrimSpace(cfg.Store.Redis.Addr) == "" {
			return fmt.Errorf("store.redis.addr is required when store.backend is 'redis'")
		}
		if cfg.Store.Redis.TTLHours < 0 {
			return fmt.Errorf("store.redis.ttl_hours must be >= 0")
		}
	case StoreBackendPostgres:
		if strings.TrimSpace(cfg.Store.Postgres.Host) == "" {
			return fmt.Errorf("store.postgres.host is required when store.backend is 'postgres'")
		}
	default:
		return fmt.Errorf("invalid store.backend %q; allowed: memory, redis, postgres", cfg.Store.Backend)
	}
	cfg.Store.Backend = backend

	if cfg.Shop.BaseURL == "" {
		cfg.Shop.BaseURL = "https://api.moltin.com"
	}
	cfg.Shop.BaseURL = strings.TrimRight(cfg.Shop.BaseURL, "/")
	if cfg.Shop.TimeoutSeconds < 0 {
		return fmt.Errorf("shop.timeout_seconds must be >= 0")
	}

	if cfg.Dialog.Workers < 0 || cfg.Dialog.QueueSize < 0 {
		return fmt.Errorf("dialog.workers and dialog.queue_size must be >= 0")
	}

	return nil
}

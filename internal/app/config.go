package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	coredatabase "github.com/m3rciful/shopbot/core/database"
)

// Shop modes.
const (
	ModeLive = "live"
	ModeDemo = "demo"
)

// Backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// ShopConfig configures the storefront.
type ShopConfig struct {
	// Mode "demo" seeds a sample catalog on the first /start instead of requiring /setup.
	Mode          string `yaml:"mode" envconfig:"MODE"`
	ProviderToken string `yaml:"provider_token" envconfig:"PAYMENT_PROVIDER_TOKEN"`
	Currency      string `yaml:"currency" envconfig:"SHOP_CURRENCY"`
	VoucherPrefix string `yaml:"voucher_prefix" envconfig:"VOUCHER_PREFIX"`
}

// SessionConfig selects where conversation sessions live.
type SessionConfig struct {
	Backend  string `yaml:"backend" envconfig:"SESSION_BACKEND"`
	RedisURL string `yaml:"redis_url" envconfig:"REDIS_URL"`
	// RedisPassword overrides the password embedded in RedisURL.
	RedisPassword string `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	// TTL of zero keeps sessions forever.
	TTL time.Duration `yaml:"ttl" envconfig:"SESSION_TTL"`
}

// StorageConfig selects the shop storage backend.
type StorageConfig struct {
	Backend string `yaml:"backend" envconfig:"STORAGE_BACKEND"`
}

// HealthConfig configures the liveness endpoint.
type HealthConfig struct {
	Port     int  `yaml:"port" envconfig:"PORT"`
	Disabled bool `yaml:"disabled" envconfig:"HEALTH_DISABLED"`
}

// Config is the complete application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Shop     ShopConfig          `yaml:"shop"`
	Session  SessionConfig       `yaml:"session"`
	Storage  StorageConfig       `yaml:"storage"`
	Health   HealthConfig        `yaml:"health"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path and the environment into a validated Config.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	c.Shop.Mode = strings.ToLower(strings.TrimSpace(c.Shop.Mode))
	switch c.Shop.Mode {
	case "":
		c.Shop.Mode = ModeLive
	case ModeLive, ModeDemo:
	default:
		return fmt.Errorf("invalid shop.mode %q; allowed: live, demo", c.Shop.Mode)
	}
	c.Shop.Currency = strings.ToUpper(strings.TrimSpace(c.Shop.Currency))
	if c.Shop.Currency == "" {
		c.Shop.Currency = "USD"
	}
	if len(c.Shop.Currency) != 3 {
		return fmt.Errorf("shop.currency must be an ISO 4217 code, got %q", c.Shop.Currency)
	}
	c.Shop.ProviderToken = strings.TrimSpace(c.Shop.ProviderToken)

	c.Session.Backend = strings.ToLower(strings.TrimSpace(c.Session.Backend))
	switch c.Session.Backend {
	case "":
		c.Session.Backend = BackendMemory
	case BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(c.Session.RedisURL) == "" {
			return fmt.Errorf("session.redis_url is required when session.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: memory, redis", c.Session.Backend)
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must be >= 0")
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case "":
		c.Storage.Backend = BackendMemory
	case BackendMemory:
	case BackendPostgres:
		if err := c.Database.Normalize(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	default:
		return fmt.Errorf("invalid storage.backend %q; allowed: memory, postgres", c.Storage.Backend)
	}

	if c.Health.Port == 0 {
		c.Health.Port = 3000
	}
	if c.Health.Port < 0 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535")
	}
	return nil
}

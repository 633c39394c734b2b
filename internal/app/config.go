package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "gatebot/core/config"
	coredatabase "gatebot/core/database"
)

// AccessConfig holds the gating and token settings of the bot.
type AccessConfig struct {
	// Channel is the gating channel username, e.g. "@botupdateshere".
	Channel string `yaml:"channel" envconfig:"ACCESS_CHANNEL"`
	// TokenTTLHours is the base token duration granted to regular users.
	TokenTTLHours int `yaml:"token_ttl_hours" envconfig:"ACCESS_TOKEN_TTL_HOURS"`
	// ReferralTTLHours is the extended duration for referred users; must exceed the base.
	ReferralTTLHours int `yaml:"referral_ttl_hours" envconfig:"ACCESS_REFERRAL_TTL_HOURS"`
	// DownloadLinkTTLHours is the advertised validity window of resolved links.
	DownloadLinkTTLHours int `yaml:"download_link_ttl_hours" envconfig:"ACCESS_DOWNLOAD_LINK_TTL_HOURS"`
	// ResolverURL is the delivery gateway endpoint used to build download links.
	ResolverURL string `yaml:"resolver_url" envconfig:"ACCESS_RESOLVER_URL"`
	// VerifyCacheTTLSeconds bounds how long a membership determination may be reused.
	VerifyCacheTTLSeconds int `yaml:"verify_cache_ttl_seconds" envconfig:"ACCESS_VERIFY_CACHE_TTL_SECONDS"`
	// BroadcastConcurrency caps simultaneous outbound sends during a broadcast.
	BroadcastConcurrency int `yaml:"broadcast_concurrency" envconfig:"BROADCAST_CONCURRENCY"`
	// BroadcastSendTimeoutSeconds bounds a single broadcast delivery.
	BroadcastSendTimeoutSeconds int `yaml:"broadcast_send_timeout_seconds" envconfig:"BROADCAST_SEND_TIMEOUT_SECONDS"`
}

// TokenTTL returns the base token duration.
func (a AccessConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// ReferralTTL returns the extended token duration for referred users.
func (a AccessConfig) ReferralTTL() time.Duration {
	return time.Duration(a.ReferralTTLHours) * time.Hour
}

// DownloadLinkTTL returns the advertised validity window of resolved links.
func (a AccessConfig) DownloadLinkTTL() time.Duration {
	return time.Duration(a.DownloadLinkTTLHours) * time.Hour
}

// VerifyCacheTTL returns the membership cache window.
func (a AccessConfig) VerifyCacheTTL() time.Duration {
	return time.Duration(a.VerifyCacheTTLSeconds) * time.Second
}

// BroadcastSendTimeout returns the per-recipient delivery timeout.
func (a AccessConfig) BroadcastSendTimeout() time.Duration {
	return time.Duration(a.BroadcastSendTimeoutSeconds) * time.Second
}

// RedisConfig holds optional cache settings. An empty address disables caching.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// Config aggregates the core configuration with the bot's own settings.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Access   AccessConfig        `yaml:"access"`
	Redis    RedisConfig         `yaml:"redis"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
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

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required app settings and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Core.Telegram.AdminID == 0 {
		return fmt.Errorf("telegram.admin_id is required")
	}

	a := &cfg.Access
	a.Channel = strings.TrimSpace(a.Channel)
	if a.Channel == "" {
		return fmt.Errorf("access.channel is required")
	}
	if !strings.HasPrefix(a.Channel, "@") {
		a.Channel = "@" + a.Channel
	}

	if a.TokenTTLHours <= 0 {
		a.TokenTTLHours = 4
	}
	if a.ReferralTTLHours <= 0 {
		a.ReferralTTLHours = 8
	}
	if a.ReferralTTLHours <= a.TokenTTLHours {
		return fmt.Errorf("access.referral_ttl_hours (%d) must be greater than access.token_ttl_hours (%d)",
			a.ReferralTTLHours, a.TokenTTLHours)
	}
	if a.DownloadLinkTTLHours <= 0 {
		a.DownloadLinkTTLHours = 24
	}
	if strings.TrimSpace(a.ResolverURL) == "" {
		return fmt.Errorf("access.resolver_url is required")
	}
	if a.VerifyCacheTTLSeconds <= 0 {
		a.VerifyCacheTTLSeconds = 60
	}
	if a.BroadcastConcurrency <= 0 {
		a.BroadcastConcurrency = 8
	}
	if a.BroadcastSendTimeoutSeconds <= 0 {
		a.BroadcastSendTimeoutSeconds = 5
	}
	return nil
}

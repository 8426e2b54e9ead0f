package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string `env:"TELEGRAM_TOKEN,required,notEmpty"`
	TelegramDebug bool   `env:"TELEGRAM_DEBUG" envDefault:"false"`
	DevMode       bool   `env:"DEV_MODE" envDefault:"false"`
	DevModeChatID int64  `env:"DEV_MODE_CHAT_ID"`

	AdminIDs       []int64 `env:"ADMIN_IDS" envSeparator:","`
	AdminChannelID int64   `env:"ADMIN_CHANNEL_ID"`

	SessionIdleTTL     time.Duration `env:"SESSION_IDLE_TTL" envDefault:"6h"`
	RateLimitPerMinute int64         `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`

	Backend  BackendConfig
	Pricing  PricingConfig
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Database DatabaseConfig `envPrefix:"DB_"`
	Log      LogConfig      `envPrefix:"LOG_"`
}

type BackendConfig struct {
	BaseURL        string        `env:"BACKEND_URL,required,notEmpty"`
	Token          string        `env:"BACKEND_TOKEN"`
	PricingPath    string        `env:"PRICING_PATH" envDefault:"/config"`
	PageCountURL   string        `env:"PAGE_COUNT_URL,required,notEmpty"`
	ColorDetectURL string        `env:"COLOR_DETECT_URL,required,notEmpty"`
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
}

type PricingConfig struct {
	BlackWhite      int64         `env:"PRICE_BLACK_WHITE" envDefault:"500"`
	Color           int64         `env:"PRICE_COLOR" envDefault:"1000"`
	FullColor       int64         `env:"PRICE_FULL_COLOR" envDefault:"1500"`
	DetectFullColor bool          `env:"COLOR_DETECTION_ENABLED" envDefault:"true"`
	RefreshInterval time.Duration `env:"PRICING_REFRESH_INTERVAL" envDefault:"5m"`
}

// RedisConfig is optional; an empty Addr disables the shared price
// snapshot and rate limiting.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// DatabaseConfig is optional; an empty Host disables the order archive.
type DatabaseConfig struct {
	Host            string        `env:"HOST"`
	Port            int           `env:"PORT" envDefault:"5432"`
	User            string        `env:"USER"`
	Password        string        `env:"PASSWORD"`
	Name            string        `env:"NAME"`
	SSLMode         string        `env:"SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"2m"`
}

type LogConfig struct {
	File       string `env:"FILE"`
	Production bool   `env:"PRODUCTION" envDefault:"false"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Pricing.BlackWhite <= 0 || c.Pricing.Color <= 0 || c.Pricing.FullColor <= 0 {
		return fmt.Errorf("prices must be positive")
	}
	if c.DevMode && c.DevModeChatID == 0 {
		return fmt.Errorf("DEV_MODE requires DEV_MODE_CHAT_ID")
	}
	if c.Database.Enabled() && (c.Database.User == "" || c.Database.Name == "") {
		return fmt.Errorf("DB_USER and DB_NAME are required when DB_HOST is set")
	}
	return nil
}

func (d DatabaseConfig) Enabled() bool { return d.Host != "" }

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/xenking/cloud-kitchen/internal/handler"
	"github.com/xenking/cloud-kitchen/pkg/money"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (KITCHEN_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL; in-memory storage when empty (KITCHEN_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	AMQPURL     string `usage:"RabbitMQ URL for order events; disabled when empty" flag:"amqp-url"`
	MenuFile    string `usage:"Menu JSON file (.json or .json.gz) for in-memory storage; embedded menu when empty" flag:"menu-file"`
	Currency    string `default:"USD" usage:"ISO 4217 currency of menu prices"`
	TaxRate     string `default:"0.08" usage:"Tax and fees rate applied to the subtotal" flag:"tax-rate"`
	DefaultCart []string `default:"1:1,2:2,3:1" usage:"Cart opened without a body, as menuItemID:quantity pairs" flag:"default-cart"`
	Session     SessionConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// SessionConfig controls cart session lifetime.
type SessionConfig struct {
	TTL time.Duration `default:"30m" usage:"Idle time after which a cart session is evicted"`
}

// AuthConfig controls API key checks on checkout.
type AuthConfig struct {
	Required bool     `default:"false" usage:"Require an api_key header on checkout" flag:"auth-required"`
	Pepper   string   `usage:"HMAC pepper for API key hashing (KITCHEN_AUTH_PEPPER)" flag:"auth-pepper"`
	Keys     []string `usage:"Accepted API keys when running without a database" flag:"auth-keys"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "KITCHEN",
		Files:     []string{"config.yaml", "/etc/kitchen/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's KITCHEN_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// Validate checks values that aconfig cannot type-check.
func (c *Config) Validate() error {
	if _, err := c.CurrencyUnit(); err != nil {
		return err
	}
	if _, err := c.Tax(); err != nil {
		return err
	}
	if _, err := c.Cart(); err != nil {
		return err
	}
	if c.Session.TTL <= 0 {
		return errors.Errorf("session TTL must be positive, got %s", c.Session.TTL)
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	if c.Auth.Required && c.DatabaseURL == "" && len(c.Auth.Keys) == 0 {
		return errors.New("auth is required but no API keys are configured")
	}
	return nil
}

// CurrencyUnit parses Currency.
func (c *Config) CurrencyUnit() (currency.Unit, error) {
	u, err := money.ParseUnit(c.Currency)
	if err != nil {
		return currency.Unit{}, errors.Wrap(err, "currency")
	}
	return u, nil
}

// Tax parses TaxRate, which must lie in [0, 1).
func (c *Config) Tax() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "tax rate %q", c.TaxRate)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Decimal{}, errors.Errorf("tax rate %s out of range [0, 1)", rate)
	}
	return rate, nil
}

// Cart parses DefaultCart entries of the form "menuItemID:quantity".
func (c *Config) Cart() ([]handler.CartLine, error) {
	lines := make([]handler.CartLine, 0, len(c.DefaultCart))
	for _, entry := range c.DefaultCart {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		rawID, rawQty, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, errors.Errorf("default cart entry %q: want id:quantity", entry)
		}
		id, err := strconv.Atoi(strings.TrimSpace(rawID))
		if err != nil || id <= 0 {
			return nil, errors.Errorf("default cart entry %q: invalid menu item id", entry)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(rawQty))
		if err != nil || qty < 1 {
			return nil, errors.Errorf("default cart entry %q: quantity must be at least 1", entry)
		}
		lines = append(lines, handler.CartLine{MenuItemID: id, Quantity: qty})
	}
	return lines, nil
}

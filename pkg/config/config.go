package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Backend kinds accepted by BAKERY_CART_BACKEND.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	App          AppConfig
	Cart         CartConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
}

// Load reads BAKERY_* variables and checks that the selected cart backend has
// what it needs.
func Load() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Cart.Backend {
	case BackendMemory:
	case BackendFile:
		if strings.TrimSpace(c.Cart.FilePath) == "" {
			return fmt.Errorf("%s is required for the file backend", EnvCartFilePath)
		}
	case BackendRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("%s is required for the redis backend", EnvRedisURL)
		}
	case BackendSQLite:
		if c.DB.SQLitePath == "" {
			c.DB.SQLitePath = "file::memory:?cache=shared"
		}
	case BackendPostgres:
		if err := c.DB.ensureDSN(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown %s %q", EnvCartBackend, c.Cart.Backend)
	}
	if c.Cart.TaxRate < 0 {
		return fmt.Errorf("%s must be non-negative", EnvCartTaxRate)
	}
	if c.Cart.FreeShippingThreshold < 0 {
		return fmt.Errorf("%s must be non-negative", EnvCartThreshold)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"BAKERY_APP_ENV" required:"true"`
	Port         string `envconfig:"BAKERY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BAKERY_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"BAKERY_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"BAKERY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool  { return strings.EqualFold(a.Env, AppEnvDev) }
func (a AppConfig) IsProd() bool { return strings.EqualFold(a.Env, AppEnvProd) }

// CartConfig controls where carts live and how they are priced.
type CartConfig struct {
	Backend               string        `envconfig:"BAKERY_CART_BACKEND" default:"memory"`
	FilePath              string        `envconfig:"BAKERY_CART_FILE_PATH" default:"data/carts.json"`
	StorageKey            string        `envconfig:"BAKERY_CART_STORAGE_KEY" default:"bakery_cart"`
	CountKey              string        `envconfig:"BAKERY_CART_COUNT_KEY" default:"cartCount"`
	TaxRate               float64       `envconfig:"BAKERY_CART_TAX_RATE" default:"0.15"`
	FreeShippingThreshold float64       `envconfig:"BAKERY_CART_FREE_SHIPPING_THRESHOLD" default:"10000"`
	StandardShipping      float64       `envconfig:"BAKERY_CART_STANDARD_SHIPPING" default:"500"`
	TTL                   time.Duration `envconfig:"BAKERY_CART_TTL" default:"0"`
}

type DBConfig struct {
	DSN        string `envconfig:"BAKERY_DB_DSN"`
	SQLitePath string `envconfig:"BAKERY_DB_SQLITE_PATH"`

	// Used only when DSN is empty.
	Host     string `envconfig:"BAKERY_DB_HOST"`
	Port     int    `envconfig:"BAKERY_DB_PORT" default:"5432"`
	User     string `envconfig:"BAKERY_DB_USER"`
	Password string `envconfig:"BAKERY_DB_PASSWORD"`
	Name     string `envconfig:"BAKERY_DB_NAME"`
	SSLMode  string `envconfig:"BAKERY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAKERY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAKERY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAKERY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAKERY_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"BAKERY_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAKERY_REDIS_URL"`
	Address      string        `envconfig:"BAKERY_REDIS_ADDR"`
	Password     string        `envconfig:"BAKERY_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAKERY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAKERY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAKERY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAKERY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAKERY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAKERY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BAKERY_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"BAKERY_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// ensureDSN assembles DSN from the discrete BAKERY_DB_* parts when no DSN
// was given.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
	for _, part := range []struct{ env, value string }{
		{EnvDBHost, db.Host},
		{EnvDBUser, db.User},
		{EnvDBName, db.Name},
	} {
		if part.value == "" {
			missing = append(missing, part.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s or all of %s must be set", EnvDBDSN, strings.Join(missing, ", "))
	}

	dsn := url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.Password != "" {
		dsn.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = dsn.String()
	return nil
}

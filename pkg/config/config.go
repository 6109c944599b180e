package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Tenants      TenantsConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Balance      BalanceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"JEWELSTOCK_APP_ENV" required:"true"`
	Port         string `envconfig:"JEWELSTOCK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"JEWELSTOCK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"JEWELSTOCK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"JEWELSTOCK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"JEWELSTOCK_DB_DSN"`
	Driver string `envconfig:"JEWELSTOCK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"JEWELSTOCK_DB_HOST"`
	LegacyPort     int    `envconfig:"JEWELSTOCK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"JEWELSTOCK_DB_USER"`
	LegacyPassword string `envconfig:"JEWELSTOCK_DB_PASSWORD"`
	LegacyName     string `envconfig:"JEWELSTOCK_DB_NAME"`
	LegacySSLMode  string `envconfig:"JEWELSTOCK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"JEWELSTOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"JEWELSTOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"JEWELSTOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"JEWELSTOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// TenantsConfig maps tenant codes to their isolated Postgres DSNs. The
// default DB DSN serves the tenant named by DefaultCode when the map does not
// override it.
type TenantsConfig struct {
	DSNs        map[string]string `envconfig:"JEWELSTOCK_TENANT_DSNS"`
	DefaultCode string            `envconfig:"JEWELSTOCK_TENANT_DEFAULT" default:"default"`
}

type RedisConfig struct {
	URL          string        `envconfig:"JEWELSTOCK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"JEWELSTOCK_REDIS_ADDR"`
	Password     string        `envconfig:"JEWELSTOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"JEWELSTOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"JEWELSTOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"JEWELSTOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"JEWELSTOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"JEWELSTOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"JEWELSTOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"JEWELSTOCK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"JEWELSTOCK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"JEWELSTOCK_JWT_EXPIRATION_MINUTES" default:"60"`
}

// RateLimitConfig throttles mutating API calls per caller.
type RateLimitConfig struct {
	Window time.Duration `envconfig:"JEWELSTOCK_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"JEWELSTOCK_RATE_LIMIT" default:"120"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"JEWELSTOCK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"JEWELSTOCK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"JEWELSTOCK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"JEWELSTOCK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	InventoryTopic        string `envconfig:"JEWELSTOCK_PUBSUB_INVENTORY_TOPIC" default:"js-inventory-events"`
	InventorySubscription string `envconfig:"JEWELSTOCK_PUBSUB_INVENTORY_SUBSCRIPTION" default:"js-inventory-events-sub"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"JEWELSTOCK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"JEWELSTOCK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"JEWELSTOCK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// BalanceConfig tunes the nightly reconciliation worker.
type BalanceConfig struct {
	Interval     time.Duration `envconfig:"JEWELSTOCK_BALANCE_INTERVAL" default:"24h"`
	LockTTL      time.Duration `envconfig:"JEWELSTOCK_BALANCE_LOCK_TTL" default:"2h"`
	LookbackDays int           `envconfig:"JEWELSTOCK_BALANCE_LOOKBACK_DAYS" default:"1"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Analytics    AnalyticsConfig
	Events       EventsConfig
	GCP          GCPConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !c.FeatureFlags.UseSQLite {
		if err := c.DB.ensureDSN(); err != nil {
			return err
		}
	}
	if err := c.Checkout.validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.App.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q (json|console)", c.App.LogFormat)
	}
	if _, err := c.Analytics.Location(); err != nil {
		return fmt.Errorf("invalid analytics timezone %q: %w", c.Analytics.Timezone, err)
	}
	return c.Events.validate(c.GCP)
}

type AppConfig struct {
	Env            string        `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port           string        `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel       string        `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack   bool          `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	LogFormat      string        `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	RequestTimeout time.Duration `envconfig:"STOREFRONT_REQUEST_TIMEOUT" default:"10s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`
	// SQLitePath is used when the sqlite feature flag is on.
	SQLitePath string `envconfig:"STOREFRONT_DB_SQLITE_PATH" default:"storefront.db"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
	// IdempotencyTTL bounds how long a delivered event id is remembered by the
	// live feed forwarder.
	IdempotencyTTL time.Duration `envconfig:"STOREFRONT_IDEMPOTENCY_TTL" default:"24h"`
}

// JWTConfig verifies tokens minted by the external auth service.
type JWTConfig struct {
	Secret string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
	// AllowStatusOverride restores the legacy "set any status" admin behaviour.
	AllowStatusOverride bool `envconfig:"STOREFRONT_ALLOW_STATUS_OVERRIDE" default:"false"`
	// EmbeddedRelay runs the outbox relay inside the API process.
	EmbeddedRelay bool `envconfig:"STOREFRONT_EMBEDDED_RELAY" default:"false"`
}

type CheckoutConfig struct {
	EnabledGateways      []string `envconfig:"STOREFRONT_CHECKOUT_GATEWAYS" default:"cash_on_delivery,card"`
	DefaultPaymentStatus string   `envconfig:"STOREFRONT_CHECKOUT_DEFAULT_PAYMENT_STATUS" default:"pending"`
	MaxLines             int      `envconfig:"STOREFRONT_CHECKOUT_MAX_LINES" default:"100"`

	// Coupons maps a coupon code to its percent off, e.g. "EID10:10,WELCOME:5".
	Coupons               map[string]int `envconfig:"STOREFRONT_CHECKOUT_COUPONS"`
	TaxBasisPoints        int            `envconfig:"STOREFRONT_CHECKOUT_TAX_BPS" default:"0"`
	ShippingCents         int64          `envconfig:"STOREFRONT_CHECKOUT_SHIPPING_CENTS" default:"0"`
	FreeShippingOverCents int64          `envconfig:"STOREFRONT_CHECKOUT_FREE_SHIPPING_OVER_CENTS" default:"0"`
}

func (c CheckoutConfig) validate() error {
	if len(c.EnabledGateways) == 0 {
		return fmt.Errorf("at least one checkout gateway must be enabled")
	}
	for _, gw := range c.EnabledGateways {
		if _, ok := knownGateways[strings.TrimSpace(gw)]; !ok {
			return fmt.Errorf("unknown checkout gateway %q", gw)
		}
	}
	for code, pct := range c.Coupons {
		if strings.TrimSpace(code) == "" || pct < 1 || pct > 100 {
			return fmt.Errorf("coupon %q must give 1-100 percent off, got %d", code, pct)
		}
	}
	if c.TaxBasisPoints < 0 || c.TaxBasisPoints > 10_000 {
		return fmt.Errorf("checkout tax basis points must be within 0-10000, got %d", c.TaxBasisPoints)
	}
	if c.ShippingCents < 0 || c.FreeShippingOverCents < 0 {
		return fmt.Errorf("checkout shipping amounts must not be negative")
	}
	return nil
}

type AnalyticsConfig struct {
	Timezone string `envconfig:"STOREFRONT_ANALYTICS_TIMEZONE" default:"UTC"`
	TopN     int    `envconfig:"STOREFRONT_ANALYTICS_TOP_N" default:"5"`
}

// Location resolves the configured reporting time zone.
func (a AnalyticsConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(a.Timezone) == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(a.Timezone)
}

type EventsConfig struct {
	Sink         string `envconfig:"STOREFRONT_EVENTS_SINK" default:"redis"`
	RedisChannel string `envconfig:"STOREFRONT_EVENTS_REDIS_CHANNEL" default:"orders.events"`
	PubSubTopic  string `envconfig:"STOREFRONT_EVENTS_PUBSUB_TOPIC" default:"storefront-order-events"`
}

func (e EventsConfig) validate(gcp GCPConfig) error {
	switch e.Sink {
	case EventSinkRedis, EventSinkNone:
		return nil
	case EventSinkPubSub:
		if gcp.ProjectID == "" {
			return fmt.Errorf("pubsub event sink requires STOREFRONT_GCP_PROJECT_ID")
		}
		return nil
	default:
		return fmt.Errorf("unknown event sink %q", e.Sink)
	}
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"STOREFRONT_OUTBOX_RETENTION_DAYS" default:"30"`
}

// CronConfig sets the worker tick and each job's own cadence. A job runs on
// the first tick after its cadence has elapsed.
type CronConfig struct {
	Interval         time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"15m"`
	LockTTL          time.Duration `envconfig:"STOREFRONT_CRON_LOCK_TTL" default:"10m"`
	RetentionEvery   time.Duration `envconfig:"STOREFRONT_CRON_RETENTION_EVERY" default:"24h"`
	OrderAuditEvery  time.Duration `envconfig:"STOREFRONT_CRON_ORDER_AUDIT_EVERY" default:"1h"`
	OrderAuditWindow time.Duration `envconfig:"STOREFRONT_CRON_ORDER_AUDIT_WINDOW" default:"2h"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"*"`
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

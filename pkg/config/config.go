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
	Stripe       StripeConfig
	Sendgrid     SendgridConfig
	Outbox       OutboxConfig
	Checkout     CheckoutConfig
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
	Env          string `envconfig:"MEALKIT_APP_ENV" required:"true"`
	Port         string `envconfig:"MEALKIT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MEALKIT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MEALKIT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MEALKIT_DB_DSN"`
	Driver string `envconfig:"MEALKIT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MEALKIT_DB_HOST"`
	LegacyPort     int    `envconfig:"MEALKIT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MEALKIT_DB_USER"`
	LegacyPassword string `envconfig:"MEALKIT_DB_PASSWORD"`
	LegacyName     string `envconfig:"MEALKIT_DB_NAME"`
	LegacySSLMode  string `envconfig:"MEALKIT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MEALKIT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MEALKIT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MEALKIT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MEALKIT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MEALKIT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MEALKIT_REDIS_ADDR"`
	Password     string        `envconfig:"MEALKIT_REDIS_PASSWORD"`
	DB           int           `envconfig:"MEALKIT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MEALKIT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MEALKIT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MEALKIT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MEALKIT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MEALKIT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MEALKIT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MEALKIT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MEALKIT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MEALKIT_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey string `envconfig:"MEALKIT_STRIPE_API_KEY"`
	Secret string `envconfig:"MEALKIT_STRIPE_SECRET"`
	Env    string `envconfig:"MEALKIT_STRIPE_ENV" default:"test"`

	// ProductID is the Stripe catalog product recurring prices are created under.
	ProductID string `envconfig:"MEALKIT_STRIPE_PRODUCT_ID"`

	CallTimeout time.Duration `envconfig:"MEALKIT_STRIPE_CALL_TIMEOUT" default:"15s"`
}

type SendgridConfig struct {
	APIKey      string        `envconfig:"MEALKIT_SENDGRID_API_KEY"`
	DefaultFrom string        `envconfig:"MEALKIT_SENDGRID_FROM_EMAIL"`
	FromName    string        `envconfig:"MEALKIT_SENDGRID_FROM_NAME" default:"FreshFork"`
	SendTimeout time.Duration `envconfig:"MEALKIT_SENDGRID_SEND_TIMEOUT" default:"10s"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"MEALKIT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"MEALKIT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"MEALKIT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsAddr    string `envconfig:"MEALKIT_OUTBOX_METRICS_ADDR"`
}

type CheckoutConfig struct {
	FirstOrderDiscountPercent int `envconfig:"MEALKIT_FIRST_ORDER_DISCOUNT_PERCENT" default:"25"`
	PricePerPortionCents      int `envconfig:"MEALKIT_PLAN_PRICE_PER_PORTION_CENTS" default:"1250"`
	DeliveryFrequencyDays     int `envconfig:"MEALKIT_DELIVERY_FREQUENCY_DAYS" default:"7"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
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

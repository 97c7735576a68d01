package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Razorpay     RazorpayConfig
	PayPal       PayPalConfig
	Payments     PaymentsConfig
	Receipts     ReceiptsConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"AGENCY_APP_ENV" required:"true"`
	Port         string `envconfig:"AGENCY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AGENCY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AGENCY_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"AGENCY_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"AGENCY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"AGENCY_DB_DSN"`
	Driver string `envconfig:"AGENCY_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"AGENCY_DB_HOST"`
	Port     int    `envconfig:"AGENCY_DB_PORT" default:"5432"`
	User     string `envconfig:"AGENCY_DB_USER"`
	Password string `envconfig:"AGENCY_DB_PASSWORD"`
	Name     string `envconfig:"AGENCY_DB_NAME"`
	SSLMode  string `envconfig:"AGENCY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGENCY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGENCY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGENCY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGENCY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("database DSN or host/user/name settings are required")
	}
	d.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"AGENCY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AGENCY_REDIS_ADDR"`
	Password     string        `envconfig:"AGENCY_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGENCY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGENCY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGENCY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGENCY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGENCY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGENCY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type RazorpayConfig struct {
	KeyID     string        `envconfig:"AGENCY_RAZORPAY_KEY_ID" required:"true"`
	KeySecret string        `envconfig:"AGENCY_RAZORPAY_KEY_SECRET" required:"true"`
	Timeout   time.Duration `envconfig:"AGENCY_RAZORPAY_TIMEOUT" default:"15s"`
}

type PayPalConfig struct {
	ClientID string        `envconfig:"AGENCY_PAYPAL_CLIENT_ID" required:"true"`
	Secret   string        `envconfig:"AGENCY_PAYPAL_SECRET" required:"true"`
	Mode     string        `envconfig:"AGENCY_PAYPAL_MODE" default:"sandbox"`
	Timeout  time.Duration `envconfig:"AGENCY_PAYPAL_TIMEOUT" default:"20s"`
}

// IsLive reports whether the PayPal integration targets the live API.
func (p PayPalConfig) IsLive() bool {
	return strings.EqualFold(p.Mode, "live")
}

type PaymentsConfig struct {
	RequestExpiry      time.Duration `envconfig:"AGENCY_PAYMENT_REQUEST_EXPIRY" default:"168h"`
	DefaultCurrency    string        `envconfig:"AGENCY_PAYMENT_DEFAULT_CURRENCY" default:"INR"`
	MaxTxnRetries      int           `envconfig:"AGENCY_PAYMENT_MAX_TXN_RETRIES" default:"3"`
	VerifyRetries      int           `envconfig:"AGENCY_PAYMENT_VERIFY_RETRIES" default:"2"`
	VerifyRetryBackoff time.Duration `envconfig:"AGENCY_PAYMENT_VERIFY_RETRY_BACKOFF" default:"500ms"`
}

type ReceiptsConfig struct {
	BaseURL string `envconfig:"AGENCY_RECEIPTS_BASE_URL" default:"https://receipts.agency.local"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"AGENCY_CRON_INTERVAL" default:"1h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AGENCY_AUTO_MIGRATE" default:"false"`
}

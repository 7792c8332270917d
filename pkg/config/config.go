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
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	MercadoPago  MercadoPagoConfig
	SMTP         SMTPConfig
	Billing      BillingConfig
	Cron         CronConfig
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
	Env          string `envconfig:"LAVIFY_APP_ENV" required:"true"`
	Port         string `envconfig:"LAVIFY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LAVIFY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LAVIFY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LAVIFY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LAVIFY_DB_DSN"`
	Driver string `envconfig:"LAVIFY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LAVIFY_DB_HOST"`
	LegacyPort     int    `envconfig:"LAVIFY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LAVIFY_DB_USER"`
	LegacyPassword string `envconfig:"LAVIFY_DB_PASSWORD"`
	LegacyName     string `envconfig:"LAVIFY_DB_NAME"`
	LegacySSLMode  string `envconfig:"LAVIFY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LAVIFY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LAVIFY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LAVIFY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LAVIFY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LAVIFY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LAVIFY_REDIS_ADDR"`
	Password     string        `envconfig:"LAVIFY_REDIS_PASSWORD"`
	DB           int           `envconfig:"LAVIFY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LAVIFY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LAVIFY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LAVIFY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LAVIFY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LAVIFY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LAVIFY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LAVIFY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LAVIFY_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LAVIFY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LAVIFY_AUTO_MIGRATE" default:"false"`
}

type MercadoPagoConfig struct {
	AccessToken   string        `envconfig:"LAVIFY_MP_ACCESS_TOKEN" required:"true"`
	PublicKey     string        `envconfig:"LAVIFY_MP_PUBLIC_KEY"`
	WebhookSecret string        `envconfig:"LAVIFY_MP_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"LAVIFY_MP_BASE_URL" default:"https://api.mercadopago.com"`
	Timeout       time.Duration `envconfig:"LAVIFY_MP_TIMEOUT" default:"5s"`
	SuccessURL    string        `envconfig:"LAVIFY_MP_SUCCESS_URL"`
	FailureURL    string        `envconfig:"LAVIFY_MP_FAILURE_URL"`
	PendingURL    string        `envconfig:"LAVIFY_MP_PENDING_URL"`
	NotifyURL     string        `envconfig:"LAVIFY_MP_NOTIFY_URL"`
}

type SMTPConfig struct {
	Host        string `envconfig:"LAVIFY_SMTP_HOST"`
	Port        int    `envconfig:"LAVIFY_SMTP_PORT" default:"587"`
	Username    string `envconfig:"LAVIFY_SMTP_USERNAME"`
	Password    string `envconfig:"LAVIFY_SMTP_PASSWORD"`
	DefaultFrom string `envconfig:"LAVIFY_SMTP_FROM_EMAIL"`
}

func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.DefaultFrom != ""
}

type BillingConfig struct {
	TrialDays           int           `envconfig:"LAVIFY_BILLING_TRIAL_DAYS" default:"7"`
	GraceDays           int           `envconfig:"LAVIFY_BILLING_GRACE_DAYS" default:"3"`
	PendingPaymentTTL   time.Duration `envconfig:"LAVIFY_BILLING_PENDING_PAYMENT_TTL" default:"30m"`
	WebhookReplayTTL    time.Duration `envconfig:"LAVIFY_BILLING_WEBHOOK_REPLAY_TTL" default:"72h"`
	TrialWarningWindow  time.Duration `envconfig:"LAVIFY_BILLING_TRIAL_WARNING_WINDOW" default:"12h"`
}

type CronConfig struct {
	TickInterval time.Duration `envconfig:"LAVIFY_CRON_TICK_INTERVAL" default:"1h"`
	LockTTL      time.Duration `envconfig:"LAVIFY_CRON_LOCK_TTL" default:"10m"`
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

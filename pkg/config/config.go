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
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Esewa        EsewaConfig
	Khalti       KhaltiConfig
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
	Env          string `envconfig:"KHAJAGHAR_APP_ENV" required:"true"`
	Port         string `envconfig:"KHAJAGHAR_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"KHAJAGHAR_APP_BASE_URL" required:"true"`
	WebOrigin    string `envconfig:"KHAJAGHAR_WEB_ORIGIN" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"KHAJAGHAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KHAJAGHAR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"KHAJAGHAR_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"KHAJAGHAR_DB_DSN"`
	Driver string `envconfig:"KHAJAGHAR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KHAJAGHAR_DB_HOST"`
	LegacyPort     int    `envconfig:"KHAJAGHAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KHAJAGHAR_DB_USER"`
	LegacyPassword string `envconfig:"KHAJAGHAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"KHAJAGHAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"KHAJAGHAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KHAJAGHAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KHAJAGHAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KHAJAGHAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KHAJAGHAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KHAJAGHAR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KHAJAGHAR_REDIS_ADDR"`
	Password     string        `envconfig:"KHAJAGHAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"KHAJAGHAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KHAJAGHAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KHAJAGHAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KHAJAGHAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KHAJAGHAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KHAJAGHAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KHAJAGHAR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KHAJAGHAR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KHAJAGHAR_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"KHAJAGHAR_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"KHAJAGHAR_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"KHAJAGHAR_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"KHAJAGHAR_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"KHAJAGHAR_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KHAJAGHAR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KHAJAGHAR_AUTO_MIGRATE" default:"false"`
}

// CheckoutConfig holds the shop-level pricing defaults used when no
// row exists yet in shop_settings.
type CheckoutConfig struct {
	DefaultTaxRate        string        `envconfig:"KHAJAGHAR_CHECKOUT_DEFAULT_TAX_RATE" default:"0.08"`
	DefaultDeliveryCharge string        `envconfig:"KHAJAGHAR_CHECKOUT_DEFAULT_DELIVERY_CHARGE" default:"3.99"`
	CallbackDedupeTTL     time.Duration `envconfig:"KHAJAGHAR_CHECKOUT_CALLBACK_DEDUPE_TTL" default:"24h"`
}

type EsewaConfig struct {
	SecretKey   string        `envconfig:"KHAJAGHAR_ESEWA_SECRET_KEY"`
	ProductCode string        `envconfig:"KHAJAGHAR_ESEWA_PRODUCT_CODE" default:"EPAYTEST"`
	FormURL     string        `envconfig:"KHAJAGHAR_ESEWA_FORM_URL" default:"https://rc-epay.esewa.com.np/api/epay/main/v2/form"`
	StatusURL   string        `envconfig:"KHAJAGHAR_ESEWA_STATUS_URL" default:"https://rc.esewa.com.np/api/epay/transaction/status/"`
	HTTPTimeout time.Duration `envconfig:"KHAJAGHAR_ESEWA_HTTP_TIMEOUT" default:"10s"`
}

type KhaltiConfig struct {
	SecretKey   string        `envconfig:"KHAJAGHAR_KHALTI_SECRET_KEY"`
	BaseURL     string        `envconfig:"KHAJAGHAR_KHALTI_BASE_URL" default:"https://dev.khalti.com/api/v2"`
	HTTPTimeout time.Duration `envconfig:"KHAJAGHAR_KHALTI_HTTP_TIMEOUT" default:"10s"`
}

type CronConfig struct {
	TickInterval    time.Duration `envconfig:"KHAJAGHAR_CRON_TICK_INTERVAL" default:"1m"`
	LockTTL         time.Duration `envconfig:"KHAJAGHAR_CRON_LOCK_TTL" default:"5m"`
	ReconcileMaxAge time.Duration `envconfig:"KHAJAGHAR_CRON_RECONCILE_MAX_AGE" default:"24h"`
	ReconcileMinAge time.Duration `envconfig:"KHAJAGHAR_CRON_RECONCILE_MIN_AGE" default:"5m"`
	ReconcileBatch  int           `envconfig:"KHAJAGHAR_CRON_RECONCILE_BATCH" default:"50"`
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

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

	EnvDBDSN  = "MEALROUNDS_DB_DSN"
	EnvDBHost = "MEALROUNDS_DB_HOST"
	EnvDBUser = "MEALROUNDS_DB_USER"
	EnvDBName = "MEALROUNDS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Delivery     DeliveryConfig
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
	Env          string `envconfig:"MEALROUNDS_APP_ENV" required:"true"`
	Port         string `envconfig:"MEALROUNDS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MEALROUNDS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MEALROUNDS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MEALROUNDS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MEALROUNDS_DB_DSN"`
	Driver string `envconfig:"MEALROUNDS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MEALROUNDS_DB_HOST"`
	LegacyPort     int    `envconfig:"MEALROUNDS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MEALROUNDS_DB_USER"`
	LegacyPassword string `envconfig:"MEALROUNDS_DB_PASSWORD"`
	LegacyName     string `envconfig:"MEALROUNDS_DB_NAME"`
	LegacySSLMode  string `envconfig:"MEALROUNDS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MEALROUNDS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MEALROUNDS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MEALROUNDS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MEALROUNDS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MEALROUNDS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MEALROUNDS_REDIS_ADDR"`
	Password     string        `envconfig:"MEALROUNDS_REDIS_PASSWORD"`
	DB           int           `envconfig:"MEALROUNDS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MEALROUNDS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MEALROUNDS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MEALROUNDS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MEALROUNDS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MEALROUNDS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// DeliveryConfig carries scheduling defaults used when the settings table has
// no override row.
type DeliveryConfig struct {
	Timezone          string        `envconfig:"MEALROUNDS_DELIVERY_TIMEZONE" default:"UTC"`
	WeeklyCutoffDay   string        `envconfig:"MEALROUNDS_DELIVERY_WEEKLY_CUTOFF_DAY" default:"Friday"`
	WeeklyCutoffTime  string        `envconfig:"MEALROUNDS_DELIVERY_WEEKLY_CUTOFF_TIME" default:"17:00"`
	VendorCacheTTL    time.Duration `envconfig:"MEALROUNDS_DELIVERY_VENDOR_CACHE_TTL" default:"5m"`
	MinOrderNumber    int64         `envconfig:"MEALROUNDS_DELIVERY_MIN_ORDER_NUMBER" default:"100000"`
	AllocationRetries int           `envconfig:"MEALROUNDS_DELIVERY_ALLOCATION_RETRIES" default:"3"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"MEALROUNDS_CRON_INTERVAL" default:"1h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MEALROUNDS_AUTO_MIGRATE" default:"false"`
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

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "piecehub"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "PIECEHUB_APP_ENV"
	EnvPort      = "PIECEHUB_APP_PORT"
	EnvDBDSN     = "PIECEHUB_DB_DSN"
	EnvDBHost    = "PIECEHUB_DB_HOST"
	EnvDBUser    = "PIECEHUB_DB_USER"
	EnvDBName    = "PIECEHUB_DB_NAME"
	EnvRedisURL  = "PIECEHUB_REDIS_URL"
	EnvJWTSecret = "PIECEHUB_JWT_SECRET"
	EnvJWTIssuer = "PIECEHUB_JWT_ISSUER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App             AppConfig
	DB              DBConfig
	Redis           RedisConfig
	JWT             JWTConfig
	Loyalty         LoyaltyConfig
	Recommendations RecommendationsConfig
	Interactions    InteractionsConfig
	VehicleAPI      VehicleAPIConfig
	Cron            CronConfig
	RateLimit       RateLimitConfig
	FeatureFlags    FeatureFlagsConfig
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
	Env          string `envconfig:"PIECEHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"PIECEHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PIECEHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PIECEHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PIECEHUB_DB_DSN"`
	Driver string `envconfig:"PIECEHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PIECEHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"PIECEHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PIECEHUB_DB_USER"`
	LegacyPassword string `envconfig:"PIECEHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"PIECEHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"PIECEHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PIECEHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PIECEHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PIECEHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PIECEHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PIECEHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PIECEHUB_REDIS_ADDR"`
	Password     string        `envconfig:"PIECEHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"PIECEHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PIECEHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PIECEHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PIECEHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PIECEHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PIECEHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies gateway-issued tokens; this service never mints them.
type JWTConfig struct {
	Secret string `envconfig:"PIECEHUB_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"PIECEHUB_JWT_ISSUER" required:"true"`
}

type LoyaltyConfig struct {
	PointsPerCurrencyUnit int           `envconfig:"PIECEHUB_LOYALTY_POINTS_PER_UNIT" default:"10"`
	PointsValidityMonths  int           `envconfig:"PIECEHUB_LOYALTY_POINTS_VALIDITY_MONTHS" default:"12"`
	HistoryLimit          int           `envconfig:"PIECEHUB_LOYALTY_HISTORY_LIMIT" default:"20"`
	ExpiryBatchTimeout    time.Duration `envconfig:"PIECEHUB_LOYALTY_EXPIRY_BATCH_TIMEOUT" default:"5m"`
}

// ValidityMonths returns the credit lifetime in whole months.
func (l LoyaltyConfig) ValidityMonths() int {
	if l.PointsValidityMonths <= 0 {
		return 12
	}
	return l.PointsValidityMonths
}

type RecommendationsConfig struct {
	DefaultLimit       int           `envconfig:"PIECEHUB_RECO_DEFAULT_LIMIT" default:"12"`
	TrendingWindowDays int           `envconfig:"PIECEHUB_RECO_TRENDING_WINDOW_DAYS" default:"7"`
	InteractionSample  int           `envconfig:"PIECEHUB_RECO_INTERACTION_SAMPLE" default:"50"`
	ReadBudget         time.Duration `envconfig:"PIECEHUB_RECO_READ_BUDGET" default:"2s"`
}

type InteractionsConfig struct {
	ViewRetentionDays int `envconfig:"PIECEHUB_INTERACTIONS_VIEW_RETENTION_DAYS" default:"90"`
}

type VehicleAPIConfig struct {
	URL      string        `envconfig:"PIECEHUB_VEHICLE_API_URL"`
	APIKey   string        `envconfig:"PIECEHUB_VEHICLE_API_KEY"`
	Timeout  time.Duration `envconfig:"PIECEHUB_VEHICLE_API_TIMEOUT" default:"10s"`
	CacheTTL time.Duration `envconfig:"PIECEHUB_VEHICLE_API_CACHE_TTL" default:"168h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"PIECEHUB_CRON_INTERVAL" default:"24h"`
	LockKey  string        `envconfig:"PIECEHUB_CRON_LOCK_KEY" default:"cron:leader"`
	LockTTL  time.Duration `envconfig:"PIECEHUB_CRON_LOCK_TTL" default:"25h"`
}

type RateLimitConfig struct {
	TrackWindow    time.Duration `envconfig:"PIECEHUB_RATE_LIMIT_TRACK_WINDOW" default:"1m"`
	TrackIPLimit   int           `envconfig:"PIECEHUB_RATE_LIMIT_TRACK_IP_LIMIT" default:"300"`
	TrackUserLimit int           `envconfig:"PIECEHUB_RATE_LIMIT_TRACK_USER_LIMIT" default:"120"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PIECEHUB_AUTO_MIGRATE" default:"false"`
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

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the platform reads.
const EnvPrefix = "MARTELLO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Marketplace  MarketplaceConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"MARTELLO_APP_ENV" required:"true"`
	Port         string `envconfig:"MARTELLO_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MARTELLO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARTELLO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MARTELLO_DB_DSN"`
	Driver string `envconfig:"MARTELLO_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"MARTELLO_DB_HOST"`
	Port     int    `envconfig:"MARTELLO_DB_PORT" default:"5432"`
	User     string `envconfig:"MARTELLO_DB_USER"`
	Password string `envconfig:"MARTELLO_DB_PASSWORD"`
	Name     string `envconfig:"MARTELLO_DB_NAME"`
	SSLMode  string `envconfig:"MARTELLO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARTELLO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARTELLO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARTELLO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARTELLO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MARTELLO_REDIS_URL"`
	Address      string        `envconfig:"MARTELLO_REDIS_ADDR"`
	Password     string        `envconfig:"MARTELLO_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARTELLO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARTELLO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARTELLO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARTELLO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARTELLO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARTELLO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MARTELLO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MARTELLO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MARTELLO_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MARTELLO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MARTELLO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MARTELLO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MARTELLO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MARTELLO_ARGON_KEY_LEN" default:"32"`
}

// MarketplaceConfig tunes commission behavior.
type MarketplaceConfig struct {
	// DefaultCommissionPercent applies when no configured rate matches a
	// vendor/category pair.
	DefaultCommissionPercent string `envconfig:"MARTELLO_DEFAULT_COMMISSION_PERCENT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MARTELLO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MARTELLO_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"MARTELLO_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"MARTELLO_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"MARTELLO_PUBSUB_DOMAIN_TOPIC" default:"martello-domain-events"`
	DomainSubscription string `envconfig:"MARTELLO_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MARTELLO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MARTELLO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MARTELLO_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	discrete := map[string]string{
		"MARTELLO_DB_HOST": db.Host,
		"MARTELLO_DB_USER": db.User,
		"MARTELLO_DB_NAME": db.Name,
	}
	for _, key := range []string{"MARTELLO_DB_HOST", "MARTELLO_DB_USER", "MARTELLO_DB_NAME"} {
		if discrete[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either MARTELLO_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

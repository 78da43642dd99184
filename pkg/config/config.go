package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "SADHANA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	S3           S3Config
	Media        MediaConfig
	RateLimit    RateLimitConfig
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
	Env          string `envconfig:"SADHANA_APP_ENV" required:"true"`
	Port         string `envconfig:"SADHANA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SADHANA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SADHANA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"SADHANA_DB_DSN"`

	Host     string `envconfig:"SADHANA_DB_HOST"`
	Port     int    `envconfig:"SADHANA_DB_PORT" default:"5432"`
	User     string `envconfig:"SADHANA_DB_USER"`
	Password string `envconfig:"SADHANA_DB_PASSWORD"`
	Name     string `envconfig:"SADHANA_DB_NAME"`
	SSLMode  string `envconfig:"SADHANA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SADHANA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SADHANA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SADHANA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SADHANA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
	for env, value := range map[string]string{
		"SADHANA_DB_HOST": db.Host,
		"SADHANA_DB_USER": db.User,
		"SADHANA_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either SADHANA_DB_DSN or %s are required", strings.Join(missing, ", "))
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

type RedisConfig struct {
	URL          string        `envconfig:"SADHANA_REDIS_URL" required:"true"`
	Password     string        `envconfig:"SADHANA_REDIS_PASSWORD"`
	DB           int           `envconfig:"SADHANA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SADHANA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SADHANA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SADHANA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SADHANA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SADHANA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SADHANA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SADHANA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SADHANA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type S3Config struct {
	Bucket          string `envconfig:"SADHANA_S3_BUCKET" required:"true"`
	Region          string `envconfig:"SADHANA_S3_REGION" default:"ap-south-1"`
	AccessKeyID     string `envconfig:"SADHANA_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"SADHANA_S3_SECRET_ACCESS_KEY"`
	EndpointURL     string `envconfig:"SADHANA_S3_ENDPOINT_URL"`
	PublicBaseURL   string `envconfig:"SADHANA_S3_PUBLIC_BASE_URL"`
}

type MediaConfig struct {
	UploadURLTTL   time.Duration `envconfig:"SADHANA_MEDIA_UPLOAD_URL_TTL" default:"15m"`
	DownloadURLTTL time.Duration `envconfig:"SADHANA_MEDIA_DOWNLOAD_URL_TTL" default:"1h"`
	MaxUploadMB    int           `envconfig:"SADHANA_MEDIA_MAX_UPLOAD_MB" default:"200"`
}

type RateLimitConfig struct {
	DownloadWindow time.Duration `envconfig:"SADHANA_RATE_LIMIT_DOWNLOAD_WINDOW" default:"1m"`
	DownloadLimit  int           `envconfig:"SADHANA_RATE_LIMIT_DOWNLOAD_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SADHANA_AUTO_MIGRATE" default:"false"`
}

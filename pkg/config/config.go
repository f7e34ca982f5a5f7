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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Auth         AuthConfig
	Audit        AuditConfig
	Cron         CronConfig
	CORS         CORSConfig
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
	Env          string `envconfig:"APPALAPAPA_APP_ENV" required:"true"`
	Port         string `envconfig:"APPALAPAPA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"APPALAPAPA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"APPALAPAPA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"APPALAPAPA_DB_DSN"`
	Driver string `envconfig:"APPALAPAPA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"APPALAPAPA_DB_HOST"`
	LegacyPort     int    `envconfig:"APPALAPAPA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"APPALAPAPA_DB_USER"`
	LegacyPassword string `envconfig:"APPALAPAPA_DB_PASSWORD"`
	LegacyName     string `envconfig:"APPALAPAPA_DB_NAME"`
	LegacySSLMode  string `envconfig:"APPALAPAPA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"APPALAPAPA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"APPALAPAPA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"APPALAPAPA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"APPALAPAPA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.LegacyHost == "" || d.LegacyUser == "" || d.LegacyName == "" {
		return fmt.Errorf("database DSN or host/user/name parts are required")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.LegacyUser, d.LegacyPassword),
		Host:   fmt.Sprintf("%s:%d", d.LegacyHost, d.LegacyPort),
		Path:   "/" + d.LegacyName,
	}
	q := u.Query()
	q.Set("sslmode", d.LegacySSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"APPALAPAPA_REDIS_URL"`
	Address      string        `envconfig:"APPALAPAPA_REDIS_ADDR"`
	Password     string        `envconfig:"APPALAPAPA_REDIS_PASSWORD"`
	DB           int           `envconfig:"APPALAPAPA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"APPALAPAPA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"APPALAPAPA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"APPALAPAPA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"APPALAPAPA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"APPALAPAPA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"APPALAPAPA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"APPALAPAPA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"APPALAPAPA_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"APPALAPAPA_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"APPALAPAPA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"APPALAPAPA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"APPALAPAPA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"APPALAPAPA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"APPALAPAPA_ARGON_KEY_LEN" default:"32"`
}

// AuthConfig controls account registration.
type AuthConfig struct {
	// AllowedEmails restricts self-registration to the configured addresses.
	// Empty means registration is open.
	AllowedEmails []string `envconfig:"APPALAPAPA_AUTH_ALLOWED_EMAILS"`
}

// EmailAllowed reports whether the address may register an account.
func (a AuthConfig) EmailAllowed(email string) bool {
	if len(a.AllowedEmails) == 0 {
		return true
	}
	for _, allowed := range a.AllowedEmails {
		if strings.EqualFold(strings.TrimSpace(allowed), email) {
			return true
		}
	}
	return false
}

// AuditConfig controls the audit trail retention sweep.
type AuditConfig struct {
	RetentionDays int `envconfig:"APPALAPAPA_AUDIT_RETENTION_DAYS" default:"365"`
}

// CORSConfig lists the origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"APPALAPAPA_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"APPALAPAPA_CRON_INTERVAL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"APPALAPAPA_AUTO_MIGRATE" default:"false"`
}

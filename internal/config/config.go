package config

import (
	"errors"
	"fmt"
	"time"
)

// Catalog backends.
const (
	CatalogStatic = "static"
	CatalogMySQL  = "mysql"
	CatalogHTTP   = "http"
)

// Auth backends.
const (
	AuthJWT    = "jwt"
	AuthRemote = "remote"
)

type Config struct {
	AppHost string
	AppPort string

	LogLevel  string
	LogPretty bool

	JWTSecret     string
	TokenTTL      time.Duration
	AuthMode      string
	AuthURL       string
	AuthTimeout   time.Duration
	OperatorRoles []string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	CatalogMode    string
	CatalogURL     string
	CatalogToken   string
	CatalogTimeout time.Duration
	StaticServices string
	OpenHours      string
	TZLocation     string

	Retention     time.Duration
	RetentionCron string

	AuditBuffer int

	MetricsUser     string
	MetricsPassword string
}

// Load builds the configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		AppHost: GetEnv("APP_HOST", ""),
		AppPort: GetEnv("APP_PORT", "8080"),

		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		LogPretty: GetEnvBool("LOG_PRETTY", false),

		JWTSecret:     GetEnv("JWT_SECRET", ""),
		TokenTTL:      GetEnvDuration("TOKEN_TTL", 24*time.Hour),
		AuthMode:      GetEnv("AUTH_MODE", AuthJWT),
		AuthURL:       GetEnv("AUTH_URL", ""),
		AuthTimeout:   GetEnvDuration("AUTH_TIMEOUT", 3*time.Second),
		OperatorRoles: GetEnvList("OPERATOR_ROLES", []string{"admin", "operator", "super_user"}),

		DBHost:     GetEnv("DB_HOST", "127.0.0.1"),
		DBPort:     GetEnv("DB_PORT", "3306"),
		DBUser:     GetEnv("DB_USER", ""),
		DBPassword: GetEnv("DB_PASSWORD", ""),
		DBName:     GetEnv("DB_NAME", ""),

		RedisAddr:     GetEnv("REDIS_ADDR", ""),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       GetEnvInt("REDIS_DB", 0),
		CacheTTL:      GetEnvDuration("CACHE_TTL", 30*time.Second),

		CatalogMode:    GetEnv("CATALOG_MODE", CatalogStatic),
		CatalogURL:     GetEnv("CATALOG_URL", ""),
		CatalogToken:   GetEnv("CATALOG_TOKEN", ""),
		CatalogTimeout: GetEnvDuration("CATALOG_TIMEOUT", 3*time.Second),
		StaticServices: GetEnv("STATIC_SERVICES", ""),
		OpenHours:      GetEnv("OPEN_HOURS", ""),
		TZLocation:     GetEnv("TZ_LOCATION", "Asia/Jakarta"),

		Retention:     GetEnvDuration("RETENTION", 24*time.Hour),
		RetentionCron: GetEnv("RETENTION_CRON", "@every 10m"),

		AuditBuffer: GetEnvInt("AUDIT_BUFFER", 256),

		MetricsUser:     GetEnv("METRICS_USER", ""),
		MetricsPassword: GetEnv("METRICS_PASSWORD", ""),
	}
	return cfg, cfg.Validate()
}

// Validate checks the combinations the server cannot start without.
func (c Config) Validate() error {
	var errs []error

	switch c.AuthMode {
	case AuthJWT:
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required when AUTH_MODE=jwt"))
		}
	case AuthRemote:
		if c.AuthURL == "" {
			errs = append(errs, errors.New("AUTH_URL is required when AUTH_MODE=remote"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode))
	}

	switch c.CatalogMode {
	case CatalogStatic:
	case CatalogMySQL:
		if c.DBName == "" {
			errs = append(errs, errors.New("DB_NAME is required when CATALOG_MODE=mysql"))
		}
	case CatalogHTTP:
		if c.CatalogURL == "" {
			errs = append(errs, errors.New("CATALOG_URL is required when CATALOG_MODE=http"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CATALOG_MODE %q", c.CatalogMode))
	}

	return errors.Join(errs...)
}

// UseDatabase reports whether MySQL is configured.
func (c Config) UseDatabase() bool { return c.DBName != "" }

// UseRedis reports whether Redis is configured.
func (c Config) UseRedis() bool { return c.RedisAddr != "" }

func (c Config) Addr() string { return c.AppHost + ":" + c.AppPort }

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultJWTSecret is only acceptable outside prod.
const DefaultJWTSecret = "supersecretkey"

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBHost string `env:"DB_HOST" envDefault:"localhost"`
	DBPort string `env:"DB_PORT" envDefault:"5432"`
	DBName string `env:"DB_NAME" envDefault:"auditlog"`
	DBUser string `env:"DB_USER" envDefault:"auditlog"`
	DBPass string `env:"DB_PASS" envDefault:"auditlog"`

	// DBMaxOpenConns is the maximum number of open connections to the database.
	DBMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	// DBMaxIdleConns is the maximum number of idle connections.
	DBMaxIdleConns int `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`

	// MigrateOnStart applies embedded migrations before serving.
	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"true"`

	JWTSecret string `env:"JWT_SECRET" envDefault:"supersecretkey"`

	// Env is "dev" (default) or "prod". When "prod", JWT_SECRET must be set and not the default.
	Env string `env:"ENV" envDefault:"dev"`

	// LoginRatePerMinute limits login attempts per client IP.
	LoginRatePerMinute int `env:"LOGIN_RATE_PER_MINUTE" envDefault:"10"`

	// JWTExpireHours is the token lifetime in hours.
	JWTExpireHours int `env:"JWT_EXPIRE_HOURS" envDefault:"24"`

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string `env:"TLS_CERT_FILE"`
	TLSKeyFile  string `env:"TLS_KEY_FILE"`

	// LogFormat is "text" (default) or "json".
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	// LogFile, when set, receives logs through a rotating writer instead of stderr.
	LogFile string `env:"LOG_FILE"`

	// CORSAllowedOrigins is a comma-separated list; empty means same-origin only.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// DisplayTimezone is the zone the "created" column is rendered in.
	DisplayTimezone string `env:"DISPLAY_TIMEZONE" envDefault:"UTC"`

	// RetentionDays removes entries older than this many days on FlushSchedule. 0 disables.
	RetentionDays int    `env:"AUDITLOG_RETENTION_DAYS" envDefault:"0"`
	FlushSchedule string `env:"AUDITLOG_FLUSH_SCHEDULE" envDefault:"@daily"`

	// FilterCacheTTL bounds how stale the resource type filter choices may be.
	FilterCacheTTL time.Duration `env:"FILTER_CACHE_TTL" envDefault:"30s"`
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.CORSAllowedOrigins = trimOrigins(cfg.CORSAllowedOrigins)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings that are unsafe or unusable.
func (c Config) Validate() error {
	if c.Env == "prod" && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return errors.New("JWT_SECRET must be set to a non-default value when ENV=prod")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if c.RetentionDays < 0 {
		return errors.New("AUDITLOG_RETENTION_DAYS must not be negative")
	}
	if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
		return fmt.Errorf("DISPLAY_TIMEZONE: %w", err)
	}
	return nil
}

// DatabaseURL is the postgres URL form used by migrations.
func (c Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

// TokenTTL is the login token lifetime.
func (c Config) TokenTTL() time.Duration {
	if c.JWTExpireHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.JWTExpireHours) * time.Hour
}

// Location returns the display timezone, UTC when it cannot be loaded.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil || c.DisplayTimezone == "" {
		return time.UTC
	}
	return loc
}

// trimOrigins trims spaces and drops empty entries.
func trimOrigins(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, p := range in {
		if o := strings.TrimSpace(p); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Configuration is resolved in three layers, later layers winning:
//
//  1. .env in the working directory (optional)
//  2. YAML file named by CONFIG_FILE (optional)
//  3. process environment
//
// Durations stay strings here and are parsed by the components that own them,
// so a bad value surfaces as a startup error from that component.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Postgres PostgresConfig `yaml:"postgres"`
	Auth     AuthConfig     `yaml:"auth"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Logging  LoggingConfig  `yaml:"logging"`
	Admin    AdminConfig    `yaml:"admin"`
}

type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	GinMode        string   `yaml:"gin_mode"`
	PublicBaseURL  string   `yaml:"public_base_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type StorageConfig struct {
	// Driver is "postgres" or "memory".
	Driver string `yaml:"driver"`
}

type PostgresConfig struct {
	DatabaseURL string `yaml:"database_url"`
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Database    string `yaml:"database"`
	SSLMode     string `yaml:"sslmode"`
}

type AuthConfig struct {
	JWTSecret            string `yaml:"jwt_secret"`
	JWTAccessTTL         string `yaml:"jwt_access_ttl"`
	JWTRefreshTTL        string `yaml:"jwt_refresh_ttl"`
	PasswordResetTimeout string `yaml:"password_reset_timeout"`
	TokenPurgeInterval   string `yaml:"token_purge_interval"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AdminConfig describes an optional staff account created at startup when
// no user with that username exists yet.
type AdminConfig struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:    ":8080",
			GinMode: "release",
		},
		Storage: StorageConfig{Driver: "postgres"},
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    "5432",
			SSLMode: "disable",
		},
		Auth: AuthConfig{
			JWTAccessTTL:         "5m",
			JWTRefreshTTL:        "24h",
			PasswordResetTimeout: "72h",
			TokenPurgeInterval:   "1h",
		},
		SMTP: SMTPConfig{
			Port: "587",
			From: "no-reply@localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	override(&cfg.HTTP.Addr, "HTTP_ADDR")
	override(&cfg.HTTP.GinMode, "GIN_MODE")
	override(&cfg.HTTP.PublicBaseURL, "PUBLIC_BASE_URL")
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.HTTP.AllowedOrigins = strings.Split(origins, ",")
	}

	override(&cfg.Storage.Driver, "STORAGE")

	override(&cfg.Postgres.DatabaseURL, "DATABASE_URL")
	override(&cfg.Postgres.Host, "PGHOST")
	override(&cfg.Postgres.Port, "PGPORT")
	override(&cfg.Postgres.User, "PGUSER")
	override(&cfg.Postgres.Password, "PGPASSWORD")
	override(&cfg.Postgres.Database, "PGDATABASE")
	override(&cfg.Postgres.SSLMode, "PGSSLMODE")

	override(&cfg.Auth.JWTSecret, "JWT_SECRET")
	override(&cfg.Auth.JWTAccessTTL, "JWT_ACCESS_TTL")
	override(&cfg.Auth.JWTRefreshTTL, "JWT_REFRESH_TTL")
	override(&cfg.Auth.PasswordResetTimeout, "PASSWORD_RESET_TIMEOUT")
	override(&cfg.Auth.TokenPurgeInterval, "TOKEN_PURGE_INTERVAL")

	override(&cfg.SMTP.Host, "SMTP_HOST")
	override(&cfg.SMTP.Port, "SMTP_PORT")
	override(&cfg.SMTP.Username, "SMTP_USERNAME")
	override(&cfg.SMTP.Password, "SMTP_PASSWORD")
	override(&cfg.SMTP.From, "SMTP_FROM")

	override(&cfg.Logging.Level, "LOG_LEVEL")
	override(&cfg.Logging.Format, "LOG_FORMAT")

	override(&cfg.Admin.Username, "ADMIN_USERNAME")
	override(&cfg.Admin.Email, "ADMIN_EMAIL")
	override(&cfg.Admin.Password, "ADMIN_PASSWORD")
}

func override(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

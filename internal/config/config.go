package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	apperrors "residentportal/internal/errors"
)

// Config holds application level configuration loaded from an optional
// config file and environment variables.
type Config struct {
	ServerPort  string
	SwaggerHost string
	CORSOrigins []string

	DBDriver    string
	DatabaseDSN string
	ResetDB     bool

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret  string
	JWTIssuer  string
	SessionTTL time.Duration

	BcryptCost        int
	HashWorkers       int
	MinPasswordLength int
	VerificationTTL   time.Duration
	ResetTTL          time.Duration
	ThrottleMax       int
	ThrottleWindow    time.Duration

	MailerType  string
	MailFrom    string
	FrontendURL string
	SMTP        SMTPConfig
	SES         SESConfig

	LogLevel  string
	LogFormat string
}

// SMTPConfig configures the SMTP mailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SESConfig configures the AWS SES mailer. With empty static keys the
// default AWS credential chain (IAM role, shared config) is used.
type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Load builds Config from config.yaml (if present) and environment with
// sensible defaults. The returned config has been validated.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(v.GetString("CONFIG_PATH"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	dsn := v.GetString("DATABASE_DSN")
	if dsn == "" {
		dsn = v.GetString("MYSQL_DSN")
	}

	cfg := &Config{
		ServerPort:  v.GetString("SERVER_PORT"),
		SwaggerHost: v.GetString("SWAGGER_HOST"),
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),

		DBDriver:    v.GetString("DB_DRIVER"),
		DatabaseDSN: dsn,
		ResetDB:     v.GetBool("RESET_DB"),

		RedisAddr: v.GetString("REDIS_ADDR"),
		RedisDB:   v.GetInt("REDIS_DB"),
		RedisPass: v.GetString("REDIS_PASSWORD"),

		JWTSecret:  v.GetString("JWT_SECRET"),
		JWTIssuer:  v.GetString("JWT_ISSUER"),
		SessionTTL: v.GetDuration("SESSION_TTL"),

		BcryptCost:        v.GetInt("BCRYPT_COST"),
		HashWorkers:       v.GetInt("HASH_WORKERS"),
		MinPasswordLength: v.GetInt("MIN_PASSWORD_LENGTH"),
		VerificationTTL:   v.GetDuration("VERIFICATION_TTL"),
		ResetTTL:          v.GetDuration("RESET_TTL"),
		ThrottleMax:       v.GetInt("THROTTLE_MAX"),
		ThrottleWindow:    v.GetDuration("THROTTLE_WINDOW"),

		MailerType:  v.GetString("MAILER_TYPE"),
		MailFrom:    v.GetString("MAIL_FROM"),
		FrontendURL: strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
		},
		SES: SESConfig{
			Region:          v.GetString("SES_REGION"),
			AccessKeyID:     v.GetString("SES_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("SES_SECRET_ACCESS_KEY"),
		},

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("CONFIG_PATH", ".")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("MYSQL_DSN", "user:password@tcp(localhost:3306)/app?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("RESET_DB", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_ISSUER", "resident-portal")
	v.SetDefault("SESSION_TTL", 24*time.Hour)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("HASH_WORKERS", runtime.GOMAXPROCS(0))
	v.SetDefault("MIN_PASSWORD_LENGTH", 6)
	v.SetDefault("VERIFICATION_TTL", 24*time.Hour)
	v.SetDefault("RESET_TTL", time.Hour)
	v.SetDefault("THROTTLE_MAX", 5)
	v.SetDefault("THROTTLE_WINDOW", 15*time.Minute)
	v.SetDefault("MAILER_TYPE", "log")
	v.SetDefault("MAIL_FROM", "no-reply@resident-portal.local")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SES_REGION", "ap-southeast-1")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Validate rejects settings the server must not start with. A missing
// signing secret is fatal rather than a per-request error.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: JWT_SECRET must be set", apperrors.ErrConfiguration)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("%w: BCRYPT_COST must be between %d and %d", apperrors.ErrConfiguration, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.SessionTTL <= 0 || c.VerificationTTL <= 0 || c.ResetTTL <= 0 {
		return fmt.Errorf("%w: token lifetimes must be positive", apperrors.ErrConfiguration)
	}
	if c.HashWorkers < 1 {
		c.HashWorkers = 1
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable name.
const Prefix = "COURTS"

// Config captures environment driven configuration values for the reservation service.
type Config struct {
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	DBDriver       string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBDSN          string `envconfig:"DB_DSN" default:"courts.db"`
	DBMaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`

	SessionSecret string        `envconfig:"SESSION_SECRET"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// AMQPURL enables the RabbitMQ publisher. Empty means notifications are only logged.
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"courts.events"`

	RequireCourtAvailable bool          `envconfig:"REQUIRE_COURT_AVAILABLE" default:"true"`
	RejectPastBookings    bool          `envconfig:"REJECT_PAST_BOOKINGS" default:"true"`
	PastGrace             time.Duration `envconfig:"PAST_GRACE" default:"5m"`

	DashboardCacheTTL time.Duration `envconfig:"DASHBOARD_CACHE_TTL" default:"30s"`

	// BootstrapManager* create the first manager account on startup when both are set.
	BootstrapManagerEmail    string `envconfig:"BOOTSTRAP_MANAGER_EMAIL"`
	BootstrapManagerPassword string `envconfig:"BOOTSTRAP_MANAGER_PASSWORD"`
}

// Load parses configuration values from the current process environment.
//
// Defaults come from the struct tags. Required and range checks are reported
// together so an operator sees every problem at once.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		var parseErr *envconfig.ParseError
		if errors.As(err, &parseErr) {
			return Config{}, fmt.Errorf("環境変数の値が不正です: %s", parseErr.KeyName)
		}
		return Config{}, err
	}

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.DBDSN = strings.TrimSpace(cfg.DBDSN)
	cfg.SessionSecret = strings.TrimSpace(cfg.SessionSecret)
	cfg.AMQPURL = strings.TrimSpace(cfg.AMQPURL)
	cfg.BootstrapManagerEmail = strings.TrimSpace(cfg.BootstrapManagerEmail)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required values and ranges.
func (c Config) Validate() error {
	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	if c.SessionSecret == "" {
		missing = append(missing, key("SESSION_SECRET"))
	} else if len(c.SessionSecret) < 16 {
		invalid = append(invalid, key("SESSION_SECRET"))
	}
	if c.DBDSN == "" {
		missing = append(missing, key("DB_DSN"))
	}

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, key("HTTP_PORT"))
	}
	switch c.DBDriver {
	case "sqlite", "postgres", "postgresql", "pgx":
	default:
		invalid = append(invalid, key("DB_DRIVER"))
	}
	if c.DBMaxOpenConns < 0 {
		invalid = append(invalid, key("DB_MAX_OPEN_CONNS"))
	}
	if c.SessionTTL <= 0 {
		invalid = append(invalid, key("SESSION_TTL"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		invalid = append(invalid, key("LOG_LEVEL"))
	}
	if c.AMQPURL != "" && strings.TrimSpace(c.AMQPExchange) == "" {
		invalid = append(invalid, key("AMQP_EXCHANGE"))
	}
	if c.PastGrace < 0 {
		invalid = append(invalid, key("PAST_GRACE"))
	}
	if c.DashboardCacheTTL < 0 {
		invalid = append(invalid, key("DASHBOARD_CACHE_TTL"))
	}
	if (c.BootstrapManagerEmail == "") != (c.BootstrapManagerPassword == "") {
		invalid = append(invalid, key("BOOTSTRAP_MANAGER_PASSWORD"))
	}

	if len(missing) > 0 {
		return fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}
	return nil
}

func key(name string) string {
	return Prefix + "_" + name
}

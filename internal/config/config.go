// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds every tunable of the server.
type Config struct {
	// Env is "production" or anything else for development.
	Env  string
	Port int
	// AllowedOrigins is only enforced in production; development allows any http(s) origin.
	AllowedOrigins []string
	LogLevel       string

	// RedisAddr enables lifecycle event publishing when set.
	RedisAddr    string
	RedisDB      int
	RedisChannel string

	AIDelay       time.Duration
	BotCount      int
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	// DevDealer deals the fixed development hands instead of a random deal.
	DevDealer bool
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		Env:            "development",
		Port:           8080,
		AllowedOrigins: []string{"https://*", "http://*"},
		LogLevel:       "info",
		RedisChannel:   "unuscado:lifecycle",
		AIDelay:        time.Second,
		BotCount:       3,
		IdleTimeout:    15 * time.Minute,
		SweepInterval:  60 * time.Second,
	}
}

// Load applies environment overrides on top of Defaults. Values that fail to
// parse are logged and ignored.
func Load() *Config {
	cfg := Defaults()

	overrideString(&cfg.Env, "UNUSCADO_ENV")
	overrideInt(&cfg.Port, "PORT")
	if cfg.Production() {
		// production must name its origins explicitly
		cfg.AllowedOrigins = nil
	}
	if val := os.Getenv("ALLOWED_ORIGINS"); val != "" {
		cfg.AllowedOrigins = splitList(val)
	}
	overrideString(&cfg.LogLevel, "LOG_LEVEL")

	overrideString(&cfg.RedisAddr, "REDIS_ADDR")
	overrideInt(&cfg.RedisDB, "REDIS_DB")
	overrideString(&cfg.RedisChannel, "REDIS_CHANNEL")

	overrideMillis(&cfg.AIDelay, "AI_DELAY_MS")
	overrideInt(&cfg.BotCount, "BOT_COUNT")
	overrideSeconds(&cfg.IdleTimeout, "IDLE_TIMEOUT_SEC")
	overrideSeconds(&cfg.SweepInterval, "SWEEP_INTERVAL_SEC")
	overrideBool(&cfg.DevDealer, "DEV_DEALER")

	return cfg
}

// Production reports whether the server runs in production mode.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Addr is the listen address. Development binds to localhost only.
func (c *Config) Addr() string {
	if c.Production() {
		return fmt.Sprintf(":%d", c.Port)
	}
	return fmt.Sprintf("localhost:%d", c.Port)
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	if c.Production() && len(c.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("ALLOWED_ORIGINS is required in production"))
	}
	if c.AIDelay < 0 {
		errs = append(errs, errors.New("AI delay must not be negative"))
	}
	if c.BotCount < 1 || c.BotCount > 7 {
		errs = append(errs, fmt.Errorf("bot count %d must be between 1 and 7", c.BotCount))
	}
	if c.IdleTimeout <= 0 || c.SweepInterval <= 0 {
		errs = append(errs, errors.New("idle timeout and sweep interval must be positive"))
	}
	return errors.Join(errs...)
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

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			logrus.Warnf("invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func overrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*field = b
		} else {
			logrus.Warnf("invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideMillis(field *time.Duration, envKey string) {
	ms := -1
	overrideInt(&ms, envKey)
	if ms >= 0 {
		*field = time.Duration(ms) * time.Millisecond
	}
}

func overrideSeconds(field *time.Duration, envKey string) {
	sec := -1
	overrideInt(&sec, envKey)
	if sec >= 0 {
		*field = time.Duration(sec) * time.Second
	}
}

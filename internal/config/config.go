package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// App holds the runtime configuration loaded from environment variables,
// an optional .env file and an optional CONFIG_FILE.
type App struct {
	Env             string
	HTTPPort        string
	DataDir         string
	LogLevel        string
	LogFormat       string
	LockBackend     string
	QueueBackend    string
	RedisAddr       string
	RateLimitPerMin int
	MaxUploadMB     int64
	CORSOrigins     []string
	ShutdownTimeout time.Duration

	DailyProjectEnabled bool
	DailyCutoffHour     int
}

// Production reports whether the service runs in a production environment.
func (a App) Production() bool {
	return a.Env == "production" || a.Env == "prod"
}

// UsesRedis reports whether any backend needs a Redis connection.
func (a App) UsesRedis() bool {
	return a.LockBackend == "redis" || a.QueueBackend == "redis"
}

// Load returns application config with sensible defaults.
func Load() (App, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return App{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	// .env in the working directory is optional and wins over CONFIG_FILE
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.MergeInConfig(); err != nil && !isMissing(err) {
		return App{}, fmt.Errorf("read .env: %w", err)
	}
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_PORT", "5000")
	v.SetDefault("DATA_DIR", ".")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOCK_BACKEND", "memory")
	v.SetDefault("QUEUE_BACKEND", "memory")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("RATE_LIMIT_PER_MIN", 120)
	v.SetDefault("MAX_UPLOAD_MB", 32)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("DAILY_PROJECT_ENABLED", true)
	v.SetDefault("DAILY_CUTOFF_HOUR", 12)
}

func fromViper(v *viper.Viper) (App, error) {
	cfg := App{
		Env:                 v.GetString("APP_ENV"),
		HTTPPort:            v.GetString("HTTP_PORT"),
		DataDir:             v.GetString("DATA_DIR"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogFormat:           v.GetString("LOG_FORMAT"),
		LockBackend:         strings.ToLower(v.GetString("LOCK_BACKEND")),
		QueueBackend:        strings.ToLower(v.GetString("QUEUE_BACKEND")),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RateLimitPerMin:     v.GetInt("RATE_LIMIT_PER_MIN"),
		MaxUploadMB:         v.GetInt64("MAX_UPLOAD_MB"),
		CORSOrigins:         splitList(v.GetString("CORS_ORIGINS")),
		ShutdownTimeout:     v.GetDuration("SHUTDOWN_TIMEOUT"),
		DailyProjectEnabled: v.GetBool("DAILY_PROJECT_ENABLED"),
		DailyCutoffHour:     v.GetInt("DAILY_CUTOFF_HOUR"),
	}

	switch cfg.LockBackend {
	case "memory", "redis":
	default:
		return App{}, fmt.Errorf("invalid LOCK_BACKEND %q: want memory or redis", cfg.LockBackend)
	}
	switch cfg.QueueBackend {
	case "memory", "redis", "none":
	default:
		return App{}, fmt.Errorf("invalid QUEUE_BACKEND %q: want memory, redis or none", cfg.QueueBackend)
	}
	if cfg.DailyCutoffHour < 0 || cfg.DailyCutoffHour > 23 {
		return App{}, fmt.Errorf("invalid DAILY_CUTOFF_HOUR %d: want 0-23", cfg.DailyCutoffHour)
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 32
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return cfg, nil
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

func isMissing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

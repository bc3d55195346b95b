package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the messaging API service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	DatabaseURL        string
	RedisURL           string
	NATSURL            string
	JWTSecret          string
	StreamPollInterval time.Duration
	StreamLifetime     time.Duration
	TypingWindow       time.Duration
	SSEKeepAlive       time.Duration
	TypingRateLimit    int
	TypingRateWindow   time.Duration
	EventChannelBase   string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("UNILODGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Unilodge Messaging API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("stream.poll_interval", "1s")
	v.SetDefault("stream.lifetime", "30s")
	v.SetDefault("typing.window", "3s")
	v.SetDefault("sse.keepalive", "30s")
	v.SetDefault("typing.rate_limit", 10)
	v.SetDefault("typing.rate_window", "1s")
	v.SetDefault("events.channel_base", "unilodge")

	pollInterval, err := parseDurationSetting(v, "stream.poll_interval", time.Second)
	if err != nil {
		return Config{}, err
	}
	lifetime, err := parseDurationSetting(v, "stream.lifetime", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	typingWindow, err := parseDurationSetting(v, "typing.window", 3*time.Second)
	if err != nil {
		return Config{}, err
	}
	keepAlive, err := parseDurationSetting(v, "sse.keepalive", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	typingRateWindow, err := parseDurationSetting(v, "typing.rate_window", time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		JWTSecret:          v.GetString("jwt.secret"),
		StreamPollInterval: pollInterval,
		StreamLifetime:     lifetime,
		TypingWindow:       typingWindow,
		SSEKeepAlive:       keepAlive,
		TypingRateLimit:    v.GetInt("typing.rate_limit"),
		TypingRateWindow:   typingRateWindow,
		EventChannelBase:   v.GetString("events.channel_base"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.TypingRateLimit <= 0 {
		cfg.TypingRateLimit = 10
	}

	return cfg, nil
}

func parseDurationSetting(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return fallback, nil
	}
	return parsed, nil
}

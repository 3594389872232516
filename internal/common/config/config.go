package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	API      APIConfig
	Feed     FeedConfig
	Typing   TypingConfig
	Playback PlaybackConfig
	Signal   SignalConfig
	Redis    RedisConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

type APIConfig struct {
	BaseURL        string
	Token          string
	RequestTimeout time.Duration
	OAuth          OAuthConfig
}

type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

type FeedConfig struct {
	PollInterval    time.Duration
	PageSize        int
	BottomTolerance float64
}

type TypingConfig struct {
	Debounce         time.Duration
	SignalsPerMinute int
	Burst            int
}

type PlaybackConfig struct {
	WaveformBars int
}

type SignalConfig struct {
	Transport    string
	WebsocketURL string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LoggingConfig struct {
	Level      string
	Format     string
	Output     string
	EnableFile bool
	FilePath   string
}

type MetricsConfig struct {
	Enabled bool
	Addr    string
}

func Load() (*Config, error) {
	cfg := &Config{
		API: APIConfig{
			BaseURL:        getEnv("API_BASE_URL", "http://localhost:8080"),
			Token:          getEnv("API_TOKEN", ""),
			RequestTimeout: getEnvDuration("API_REQUEST_TIMEOUT", 10*time.Second),
			OAuth: OAuthConfig{
				TokenURL:     getEnv("OAUTH_TOKEN_URL", ""),
				ClientID:     getEnv("OAUTH_CLIENT_ID", ""),
				ClientSecret: getEnv("OAUTH_CLIENT_SECRET", ""),
			},
		},
		Feed: FeedConfig{
			PollInterval:    getEnvDuration("FEED_POLL_INTERVAL", 3*time.Second),
			PageSize:        getEnvInt("FEED_PAGE_SIZE", 50),
			BottomTolerance: getEnvFloat("FEED_BOTTOM_TOLERANCE", 40),
		},
		Typing: TypingConfig{
			Debounce:         getEnvDuration("TYPING_DEBOUNCE", 400*time.Millisecond),
			SignalsPerMinute: getEnvInt("TYPING_SIGNALS_PER_MINUTE", 30),
			Burst:            getEnvInt("TYPING_BURST", 5),
		},
		Playback: PlaybackConfig{
			WaveformBars: getEnvInt("PLAYBACK_WAVEFORM_BARS", 40),
		},
		Signal: SignalConfig{
			Transport:    getEnv("SIGNAL_TRANSPORT", "websocket"),
			WebsocketURL: getEnv("SIGNAL_WEBSOCKET_URL", "ws://localhost:8080/ws"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			Output:     getEnv("LOG_OUTPUT", "stdout"),
			EnableFile: getEnvBool("LOG_ENABLE_FILE", false),
			FilePath:   getEnv("LOG_FILE_PATH", "/var/log/opsdeck/client.log"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Addr:    getEnv("METRICS_ADDR", ":9100"),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Session   SessionConfig   `mapstructure:"session"`
	Responder ResponderConfig `mapstructure:"responder"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MiddlewareTimeout time.Duration `mapstructure:"middleware_timeout"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MongoConfig configures the durable archive store. Leaving URI empty
// disables archiving; the realtime store carries everything on its own.
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// SessionConfig tunes lifecycle and presence behavior.
type SessionConfig struct {
	PresenceTTL   time.Duration `mapstructure:"presence_ttl"`
	PresenceGrace time.Duration `mapstructure:"presence_grace"`
	ReapInterval  time.Duration `mapstructure:"reap_interval"`
	TypingTTL     time.Duration `mapstructure:"typing_ttl"`
}

type ResponderConfig struct {
	Provider        string        `mapstructure:"provider"`
	DisplayName     string        `mapstructure:"display_name"`
	GenerateTimeout time.Duration `mapstructure:"generate_timeout"`
	ReplyTimeout    time.Duration `mapstructure:"reply_timeout"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	Gemini          GeminiConfig  `mapstructure:"gemini"`
	Ollama          OllamaConfig  `mapstructure:"ollama"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Host  string `mapstructure:"host"`
	Model string `mapstructure:"model"`
}

type SecurityConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file path
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	// Override with environment variables
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "0s") // SSE streams stay open
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.middleware_timeout", "60s")

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Mongo
	v.SetDefault("mongo.database", "studyhub")

	// Session
	v.SetDefault("session.presence_ttl", "30s")
	v.SetDefault("session.presence_grace", "60s")
	v.SetDefault("session.reap_interval", "30s")
	v.SetDefault("session.typing_ttl", "10s")

	// Responder
	v.SetDefault("responder.provider", "gemini")
	v.SetDefault("responder.display_name", "Assistant")
	v.SetDefault("responder.generate_timeout", "60s")
	v.SetDefault("responder.reply_timeout", "120s")
	v.SetDefault("responder.sweep_interval", "30s")
	v.SetDefault("responder.ollama.host", "http://localhost:11434")
	v.SetDefault("responder.ollama.model", "llama3")

	// Security
	v.SetDefault("security.rate_limit.requests_per_minute", 120)
	v.SetDefault("security.rate_limit.burst", 20)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func bindEnvVars(v *viper.Viper) {
	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Mongo
	v.BindEnv("mongo.uri", "MONGO_URI")

	// Auth
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")

	// Responder
	v.BindEnv("responder.gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("responder.ollama.host", "OLLAMA_HOST")
}

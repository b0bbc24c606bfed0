package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nulzo/inference-gateway/internal/core/domain"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig       `mapstructure:"server"`
	Store     StoreConfig        `mapstructure:"store"`
	Redis     RedisConfig        `mapstructure:"redis"`
	Queue     QueueConfig        `mapstructure:"queue"`
	Health    HealthConfig       `mapstructure:"health"`
	RateLimit RateLimitConfig    `mapstructure:"rate_limit"`
	Models    []domain.ModelInfo `mapstructure:"models"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type QueueConfig struct {
	Capacity   int           `mapstructure:"capacity"`
	Workers    int           `mapstructure:"workers"`
	JobTimeout time.Duration `mapstructure:"job_timeout"`
}

type HealthConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	}

	// Default Values
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("store.dsn", "file:gateway.db?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("queue.capacity", 100)
	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.job_timeout", 30*time.Second)
	v.SetDefault("health.interval", 30*time.Second)
	v.SetDefault("health.probe_timeout", 5*time.Second)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	// Environment Variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// Resolve model endpoints of the form "ENV:VAR_NAME"
	for i, m := range cfg.Models {
		if strings.HasPrefix(m.Endpoint, "ENV:") {
			envVar := strings.TrimPrefix(m.Endpoint, "ENV:")
			val := os.Getenv(envVar)
			if val == "" {
				val = v.GetString(envVar)
			}
			cfg.Models[i].Endpoint = val
		}
	}

	if len(cfg.Models) == 0 {
		cfg.Models = defaultModels()
	}

	return &cfg, nil
}

// defaultModels mirrors the catalog the gateway ships with when no models
// are configured. Endpoints are overridable by env.
func defaultModels() []domain.ModelInfo {
	return []domain.ModelInfo{
		{
			Name:        "qwen-3-72b",
			Version:     "v2.0.0",
			Endpoint:    envOr("QWEN_URL", "http://qwen-3-72b:8000"),
			ModelType:   domain.ModelTypeText,
			UnitType:    domain.UnitToken,
			CostPerUnit: 0.001,
			MaxTokens:   32768,
			GPURequired: true,
		},
		{
			Name:        "sdxl",
			Version:     "v1.0",
			Endpoint:    envOr("SDXL_URL", "http://sdxl:8000"),
			ModelType:   domain.ModelTypeImage,
			UnitType:    domain.UnitImage,
			CostPerUnit: 0.05,
			GPURequired: true,
		},
	}
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

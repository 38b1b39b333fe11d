// Package config defines environment configuration structs and loaders.
package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type AppConfig struct {
	DatasetEnvConfig
	MetricsEnvConfig
	ServerEnvConfig
	ClientEnvConfig
	RedisEnvConfig
	StoreEnvConfig
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
}

func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DatasetEnvConfig describes where samples live and how they are built.
type DatasetEnvConfig struct {
	DataPath    string `env:"DATA_PATH" envDefault:"./data"`
	MapFile     string `env:"MAP_FILE"`
	NumPoints   int    `env:"NUM_POINTS" envDefault:"2048"`
	Mode        string `env:"MODE" envDefault:"train"`
	Attributes  string `env:"PC_ATTRIBS" envDefault:"xyz"`
	Augment     bool   `env:"PC_AUGM" envDefault:"false"`
	AugmentFile string `env:"PC_AUGM_CONFIG"`
	Listing     string `env:"LISTING" envDefault:"sorted"`
	GlobPattern string `env:"GLOB_PATTERN" envDefault:"*.npy"`
	Seed        uint64 `env:"SEED" envDefault:"0"`
	Workers     int    `env:"WORKERS" envDefault:"4"`
}

// MetricsEnvConfig configures the evaluation pipeline.
type MetricsEnvConfig struct {
	NumClasses     int    `env:"NUM_CLASSES" envDefault:"13"`
	SimilarityFile string `env:"SIMILARITY_FILE"`
}

// ServerEnvConfig configures the HTTP API.
type ServerEnvConfig struct {
	Address       string `env:"SERVER_ADDRESS" envDefault:"127.0.0.1"`
	Port          int    `env:"SERVER_PORT" envDefault:"8080"`
	BodySizeLimit int    `env:"SERVER_BODY_LIMIT" envDefault:"67108864"`
}

// ClientEnvConfig configures the API client.
type ClientEnvConfig struct {
	BaseURL       string        `env:"API_URL" envDefault:"http://127.0.0.1:8080"`
	ClientTimeout time.Duration `env:"CLIENT_TIMEOUT" envDefault:"30s"`
	RetryCount    int           `env:"CLIENT_RETRY_COUNT" envDefault:"2"`
}

// RedisEnvConfig configures the Redis report cache. An empty host disables it.
type RedisEnvConfig struct {
	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisUsername string `env:"REDIS_USERNAME"`
}

// StoreEnvConfig configures the sqlite run store. An empty path disables it.
// A zero retention keeps every run.
type StoreEnvConfig struct {
	StorePath      string        `env:"STORE_PATH"`
	StoreRetention time.Duration `env:"STORE_RETENTION" envDefault:"0s"`
	PruneInterval  time.Duration `env:"STORE_PRUNE_INTERVAL" envDefault:"1h"`
}

type CacheConfig struct {
	ReportTTL time.Duration
}

var (
	DevCacheConfig  = &CacheConfig{ReportTTL: 5 * time.Minute}
	TestCacheConfig = &CacheConfig{ReportTTL: time.Hour}
	ProdCacheConfig = &CacheConfig{ReportTTL: 24 * time.Hour}
)

func NewCacheConfig(environment string) *CacheConfig {
	switch strings.ToLower(environment) {
	case "dev":
		return DevCacheConfig
	case "test":
		return TestCacheConfig
	case "prod":
		return ProdCacheConfig
	}

	return DevCacheConfig
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Snapshot files.
	SightingsPath  string
	NormalizedPath string
	ClustersPath   string

	// Clustering parameters, applied when the clustered snapshot is generated.
	ClusterK             int
	ClusterSeed          int64
	ClusterMaxIterations int
	ClusterCacheTTL      time.Duration

	TopN int

	// Optional Kafka export of the clustered snapshot. Disabled when no
	// brokers are configured.
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// KafkaEnabled reports whether clustered rows should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
// Variables from the file named by ENV_FILE (default ".env") are loaded first
// when it exists; they never override variables already set.
func Load() (*Config, error) {
	if err := loadEnvFile(sharedcfg.EnvOrDefault("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	k, err := parsePositiveInt("CLUSTER_K", 5)
	if err != nil {
		return nil, err
	}
	maxIter, err := parsePositiveInt("CLUSTER_MAX_ITERATIONS", 300)
	if err != nil {
		return nil, err
	}
	topN, err := parsePositiveInt("TOP_N", 5)
	if err != nil {
		return nil, err
	}

	seed, err := strconv.ParseInt(sharedcfg.EnvOrDefault("CLUSTER_SEED", "42"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid CLUSTER_SEED")
	}

	cacheTTL, err := time.ParseDuration(sharedcfg.EnvOrDefault("CLUSTER_CACHE_TTL", "10m"))
	if err != nil || cacheTTL <= 0 {
		return nil, errors.New("invalid CLUSTER_CACHE_TTL")
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SightingsPath:  sharedcfg.EnvOrDefault("SIGHTINGS_PATH", "data/ufo_sighting_data.csv"),
		NormalizedPath: os.Getenv("NORMALIZED_PATH"),
		ClustersPath:   sharedcfg.EnvOrDefault("CLUSTERS_PATH", "data/ufo_sighting_data_with_clusters.csv"),

		ClusterK:             k,
		ClusterSeed:          seed,
		ClusterMaxIterations: maxIter,
		ClusterCacheTTL:      cacheTTL,

		TopN: topN,

		KafkaBrokers:   brokers,
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "clustered-sightings"),
	}

	if cfg.SightingsPath == "" {
		return nil, errors.New("SIGHTINGS_PATH is required")
	}
	if cfg.KafkaEnabled() && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

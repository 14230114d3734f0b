package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "data/ufo_sighting_data.csv", cfg.SightingsPath)
	assert.Empty(t, cfg.NormalizedPath)
	assert.Equal(t, "data/ufo_sighting_data_with_clusters.csv", cfg.ClustersPath)
	assert.Equal(t, 5, cfg.ClusterK)
	assert.Equal(t, int64(42), cfg.ClusterSeed)
	assert.Equal(t, 300, cfg.ClusterMaxIterations)
	assert.Equal(t, 10*time.Minute, cfg.ClusterCacheTTL)
	assert.Equal(t, 5, cfg.TopN)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "clustered-sightings", cfg.KafkaSinkTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("SIGHTINGS_PATH", "/data/in.csv.zst")
	t.Setenv("NORMALIZED_PATH", "/data/normalized.csv")
	t.Setenv("CLUSTERS_PATH", "/data/clusters.csv")
	t.Setenv("CLUSTER_K", "8")
	t.Setenv("CLUSTER_SEED", "-7")
	t.Setenv("CLUSTER_MAX_ITERATIONS", "50")
	t.Setenv("CLUSTER_CACHE_TTL", "1h")
	t.Setenv("TOP_N", "10")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/data/in.csv.zst", cfg.SightingsPath)
	assert.Equal(t, "/data/normalized.csv", cfg.NormalizedPath)
	assert.Equal(t, "/data/clusters.csv", cfg.ClustersPath)
	assert.Equal(t, 8, cfg.ClusterK)
	assert.Equal(t, int64(-7), cfg.ClusterSeed)
	assert.Equal(t, 50, cfg.ClusterMaxIterations)
	assert.Equal(t, time.Hour, cfg.ClusterCacheTTL)
	assert.Equal(t, 10, cfg.TopN)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidIntegers(t *testing.T) {
	for _, key := range []string{"CLUSTER_K", "CLUSTER_MAX_ITERATIONS", "TOP_N"} {
		for _, value := range []string{"0", "-1", "many"} {
			t.Run(key+"="+value, func(t *testing.T) {
				t.Setenv("ENV_FILE", "")
				t.Setenv(key, value)
				_, err := Load()
				require.Error(t, err)
				assert.Contains(t, err.Error(), key)
			})
		}
	}
}

func TestLoad_InvalidSeed(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("CLUSTER_SEED", "1.5")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLUSTER_SEED")
}

func TestLoad_InvalidCacheTTL(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("CLUSTER_CACHE_TTL", "-1m")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLUSTER_CACHE_TTL")
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CLUSTER_K=7\nTOP_N=3\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	// Already-set variables win over the file.
	t.Setenv("TOP_N", "4")
	t.Cleanup(func() { os.Unsetenv("CLUSTER_K") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.ClusterK)
	assert.Equal(t, 4, cfg.TopN)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	_, err := Load()
	require.NoError(t, err)
}

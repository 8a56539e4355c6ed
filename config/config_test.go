package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
kafka:
  host: "localhost"
  port: 9092
  shipment_updated_topic_name: "shipment.updated"
  weather_impact_topic_name: "weather.impact"
redis:
  host: "localhost"
  port: 6379
weatherwatch:
  http_addr: ":8080"
  kafka_consumer_group: "weather-api"
  tracking_cache_ttl_seconds: 300
  alert_rate_limit_per_minute: 20
  relay_poll_interval_seconds: 2
  relay_backoff_2_seconds: 60
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "shipment.updated", cfg.Kafka.ShipmentUpdatedTopicName)
	require.Equal(t, "weather.impact", cfg.Kafka.WeatherImpactTopicName)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.WeatherWatch.HTTPAddr)
	require.Equal(t, 300, cfg.WeatherWatch.TrackingCacheTTLSeconds)
	require.Equal(t, 20, cfg.WeatherWatch.AlertRateLimitPerMinute)
	require.Equal(t, 60, cfg.WeatherWatch.RelayBackoff2Seconds)
	require.Empty(t, cfg.WeatherWatch.SeedPath)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	p := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("kafka: [unterminated"), 0o600))
	_, err = LoadConfig(p)
	require.Error(t, err)
}

package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Kafka        KafkaConfig        `yaml:"kafka"`
	Redis        RedisConfig        `yaml:"redis"`
	WeatherWatch WeatherWatchConfig `yaml:"weatherwatch"`
}

type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	ShipmentUpdatedTopicName string `yaml:"shipment_updated_topic_name"`
	WeatherImpactTopicName   string `yaml:"weather_impact_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type WeatherWatchConfig struct {
	HTTPAddr                string `yaml:"http_addr"`
	KafkaConsumerGroup      string `yaml:"kafka_consumer_group"`
	TrackingCacheTTLSeconds int    `yaml:"tracking_cache_ttl_seconds"`
	AlertRateLimitPerMinute int    `yaml:"alert_rate_limit_per_minute"` // 0 disables

	// Seed fixture with the same shape as the built-in demo data. Empty uses the built-in set.
	SeedPath string `yaml:"seed_path"`

	RelayPollIntervalSeconds int `yaml:"relay_poll_interval_seconds"`
	RelayBatchSize           int `yaml:"relay_batch_size"`
	RelayConcurrency         int `yaml:"relay_concurrency"`
	RelayLeaseSeconds        int `yaml:"relay_lease_seconds"`

	// Publish retry schedule. Defaults: 5/15/30/60 minutes.
	RelayBackoff1Seconds int `yaml:"relay_backoff_1_seconds"`
	RelayBackoff2Seconds int `yaml:"relay_backoff_2_seconds"`
	RelayBackoff3Seconds int `yaml:"relay_backoff_3_seconds"`
	RelayBackoff4Seconds int `yaml:"relay_backoff_4_seconds"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}

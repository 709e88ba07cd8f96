package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	CareTrack CareTrackConfig `yaml:"caretrack"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	LocationFixTopic   string `yaml:"location_fix_topic"`
	AlertCreatedTopic  string `yaml:"alert_created_topic"`
	FixConsumerGroup   string `yaml:"fix_consumer_group"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type CareTrackConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	LatestFixTTLSeconds int `yaml:"latest_fix_ttl_seconds"`
	HubQueueSize        int `yaml:"hub_queue_size"`

	IngestRateLimitPerMinute int `yaml:"ingest_rate_limit_per_minute"`

	// Session reconnect schedule. Defaults: 500ms base, 30s cap, 8 retries.
	BackoffBaseMillis  int `yaml:"backoff_base_millis"`
	BackoffMaxSeconds  int `yaml:"backoff_max_seconds"`
	BackoffMaxRetries  int `yaml:"backoff_max_retries"`
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

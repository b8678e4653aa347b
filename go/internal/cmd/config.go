package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds optional file-based tuning. Everything has a default;
// the file and any single key may be absent.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	NATS struct {
		URL        string `yaml:"url"`
		StreamName string `yaml:"stream_name"`
	} `yaml:"nats"`
	Rooms struct {
		SpinDurationSec int `yaml:"spin_duration_sec"`
	} `yaml:"rooms"`
}

func defaultConfig() *Config {
	var config Config
	config.Server.Port = getEnv("PORT", "3000")
	config.NATS.URL = getEnv("NATS_URL", "nats://localhost:4222")
	config.NATS.StreamName = getEnv("NATS_STREAM", "ROOM_EVENTS")
	config.Rooms.SpinDurationSec = getEnvAsInt("SPIN_DURATION_SEC", 5)
	return &config
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}

func (c *Config) spinDuration() time.Duration {
	return time.Duration(c.Rooms.SpinDurationSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

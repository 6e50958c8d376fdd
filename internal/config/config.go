// Package config loads service configuration from a YAML file with
// environment overrides.
package config

import (
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Env            string   `mapstructure:"env"`
	Port           int      `mapstructure:"port"`
	MetricsPort    int      `mapstructure:"metrics_port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type WSConfig struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	MaxMessageSizeBytes  int64 `mapstructure:"max_message_size_bytes"`
	RateLimitPerSec      int   `mapstructure:"rate_limit_per_sec"`
}

type PresenceConfig struct {
	// EvictionGraceSeconds is how long a disconnected member keeps its room
	// slot before being evicted. Zero disables eviction entirely.
	EvictionGraceSeconds int `mapstructure:"eviction_grace_seconds"`
}

type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	Prefix     string `mapstructure:"prefix"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	WS       WSConfig       `mapstructure:"ws"`
	Presence PresenceConfig `mapstructure:"presence"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`

	// derived
	PingInterval  time.Duration
	WriteDeadline time.Duration
	EvictionGrace time.Duration
	PresenceTTL   time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("CHAT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	applyDefaults(&c)
	return &c, nil
}

func applyDefaults(c *Config) {
	if c.App.Port == 0 {
		c.App.Port = 8088
	}
	if c.App.MetricsPort == 0 {
		c.App.MetricsPort = 9098
	}
	if len(c.App.AllowedOrigins) == 0 {
		c.App.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.WS.PingIntervalSeconds == 0 {
		c.WS.PingIntervalSeconds = 25
	}
	if c.WS.WriteDeadlineSeconds == 0 {
		c.WS.WriteDeadlineSeconds = 10
	}
	if c.WS.MaxMessageSizeBytes == 0 {
		c.WS.MaxMessageSizeBytes = 64 * 1024
	}
	if c.WS.RateLimitPerSec == 0 {
		c.WS.RateLimitPerSec = 20
	}
	if c.Redis.TTLSeconds == 0 {
		c.Redis.TTLSeconds = 24 * 3600
	}
	c.PingInterval = time.Duration(c.WS.PingIntervalSeconds) * time.Second
	c.WriteDeadline = time.Duration(c.WS.WriteDeadlineSeconds) * time.Second
	c.EvictionGrace = time.Duration(c.Presence.EvictionGraceSeconds) * time.Second
	c.PresenceTTL = time.Duration(c.Redis.TTLSeconds) * time.Second
}

// Package config provides configuration management using viper.
// It supports loading from YAML files and KINGOFDIAMONDS_* environment
// variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Mongo  MongoConfig  `mapstructure:"mongo"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Rooms  RoomsConfig  `mapstructure:"rooms"`
	Reaper ReaperConfig `mapstructure:"reaper"`
}

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Port        string `mapstructure:"port"`
	CORSOrigins string `mapstructure:"cors_origins"`
}

// MongoConfig holds the durable-store connection configuration.
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// RedisConfig holds the hot-state store configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds token signing and admin-surface secrets.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	AdminKey  string `mapstructure:"admin_key"`
}

// RoomsConfig bounds the in-memory registry.
type RoomsConfig struct {
	MaxRooms     int           `mapstructure:"max_rooms"`
	IdleEviction time.Duration `mapstructure:"idle_eviction"`
}

// ReaperConfig drives the durable-store idle sweep.
type ReaperConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// Load reads configuration from an optional config.yaml and the
// environment. Environment variables use the KINGOFDIAMONDS_ prefix with
// underscores, e.g. KINGOFDIAMONDS_MONGO_URI, KINGOFDIAMONDS_SERVER_PORT.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")

	v.SetEnvPrefix("kingofdiamonds")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The config file is optional; env vars can provide everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.cors_origins", "*")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "kingofdiamonds")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "change-me-in-production")
	v.SetDefault("auth.admin_key", "")

	v.SetDefault("rooms.max_rooms", 50)
	v.SetDefault("rooms.idle_eviction", "10m")

	v.SetDefault("reaper.interval", "3m")
	v.SetDefault("reaper.stale_after", "15m")
}

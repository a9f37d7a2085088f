package config

import (
	"strings"

	"github.com/tourze/row-permission/cache"
	"github.com/tourze/row-permission/database"
	"github.com/tourze/row-permission/pkg/logger"
)

// DatabaseClientConfig converts the database section into the database
// package representation.
func (c DatabaseConfig) DatabaseClientConfig() database.Config {
	return database.Config{
		Driver:   strings.TrimSpace(c.Driver),
		Path:     strings.TrimSpace(c.Path),
		DSN:      c.DSN,
		Host:     strings.TrimSpace(c.Host),
		Port:     c.Port,
		User:     strings.TrimSpace(c.User),
		Password: c.Password,
		Name:     strings.TrimSpace(c.Name),
	}
}

// RedisClientConfig converts the cache section into the cache package
// representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:  strings.TrimSpace(c.Redis.Address),
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
	}
}

// ConfigureLogging initialises the global logger with the configured level,
// defaulting to info.
func ConfigureLogging(level string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	return logger.Init(level)
}

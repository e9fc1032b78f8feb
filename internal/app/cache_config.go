package app

import (
	"strings"
	"time"

	"github.com/charlesng35/promptgallery/internal/cache"
	"github.com/charlesng35/promptgallery/internal/database"
)

// Cache driver names accepted by cache.driver.
const (
	CacheDriverKVRest   = "kv_rest"
	CacheDriverRedis    = "redis"
	CacheDriverDatabase = "database"
	CacheDriverMemory   = "memory"
)

// KVRestClientConfig converts the REST gateway settings into the cache package representation.
func (c CacheConfig) KVRestClientConfig() cache.KVRestConfig {
	return cache.KVRestConfig{
		URL:     strings.TrimSpace(c.KVRest.URL),
		Token:   strings.TrimSpace(c.KVRest.Token),
		Timeout: c.Timeout,
	}
}

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	timeout := c.Redis.Timeout
	if timeout <= 0 {
		timeout = c.Timeout
	}
	return cache.RedisConfig{
		Address:   strings.TrimSpace(c.Redis.Address),
		Username:  strings.TrimSpace(c.Redis.Username),
		Password:  c.Redis.Password,
		DB:        c.Redis.DB,
		TLS:       c.Redis.TLS,
		Timeout:   timeout,
		KeyPrefix: c.Redis.KeyPrefix,
	}
}

// ClientConfig converts database settings into the database package representation.
// Host based settings are picked from the section matching the driver.
func (c DatabaseConfig) ClientConfig() database.Config {
	cfg := database.Config{
		Driver: c.Driver,
		Path:   strings.TrimSpace(c.Path),
		DSN:    strings.TrimSpace(c.DSN),
	}

	var auth DBAuthConfig
	switch c.Driver {
	case "postgres", "postgresql":
		auth = c.Postgres
	case "mysql":
		auth = c.MySQL
	default:
		return cfg
	}

	cfg.MaxOpenConns = 10
	cfg.ConnMaxLifetime = 30 * time.Minute
	cfg.Host = strings.TrimSpace(auth.Host)
	cfg.Port = auth.Port
	cfg.Name = strings.TrimSpace(auth.Database)
	cfg.User = strings.TrimSpace(auth.Username)
	cfg.Password = auth.Password
	return cfg
}

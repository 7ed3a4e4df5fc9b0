package providers

import (
	"time"

	"weatherpush.app/config"
	"weatherpush.app/errors"
	"weatherpush.app/providers/cache"
)

// NewWeatherCache builds the weather cache backend selected by configuration.
func NewWeatherCache(cfg *config.CacheConfig) (cache.CacheInterface, error) {
	switch cfg.Type {
	case "redis":
		backend, err := cache.NewRedisCache(&cache.RedisCacheConfig{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		if err != nil {
			return nil, errors.NewConfigurationError("failed to connect to redis cache", err)
		}
		return cache.NewWeatherCache(backend), nil
	case "memory":
		return cache.NewWeatherCache(cache.NewMemoryCache()), nil
	default:
		return nil, errors.NewConfigurationError("unknown cache type: "+cfg.Type, nil)
	}
}

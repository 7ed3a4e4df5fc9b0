package providers

import (
	"fmt"
	"log/slog"
	"time"

	"weatherpush.app/metrics"
	"weatherpush.app/models"
	"weatherpush.app/providers/cache"
)

// WeatherCacheProxy serves weather lookups from a cache before falling back
// to the real provider. Many subscriptions to the same city share one
// upstream fetch per TTL window.
type WeatherCacheProxy struct {
	realProvider WeatherProvider
	cache        cache.CacheInterface
	cacheTTL     time.Duration
	metrics      *metrics.CacheMetrics
}

func NewWeatherCacheProxy(realProvider WeatherProvider, weatherCache cache.CacheInterface, cacheTTL time.Duration, cacheMetrics *metrics.CacheMetrics) WeatherProvider {
	return &WeatherCacheProxy{
		realProvider: realProvider,
		cache:        weatherCache,
		cacheTTL:     cacheTTL,
		metrics:      cacheMetrics,
	}
}

func (p *WeatherCacheProxy) GetCurrentWeather(city string) (*models.WeatherSnapshot, error) {
	cacheKey := p.generateCacheKey(city)

	start := time.Now()
	if cachedSnapshot, found := p.cache.Get(cacheKey); found {
		p.metrics.RecordHit()
		p.metrics.RecordLatency("get", time.Since(start).Seconds())
		slog.Debug("cache hit", "city", city)
		return cachedSnapshot, nil
	}

	p.metrics.RecordMiss()
	slog.Debug("cache miss", "city", city)

	snapshot, err := p.realProvider.GetCurrentWeather(city)
	if err != nil {
		return nil, err
	}

	p.cache.Set(cacheKey, snapshot, p.cacheTTL)

	return snapshot, nil
}

func (p *WeatherCacheProxy) generateCacheKey(city string) string {
	return fmt.Sprintf("weather:%s", city)
}

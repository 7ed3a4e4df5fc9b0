package providers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"weatherpush.app/config"
	apperrors "weatherpush.app/errors"
	"weatherpush.app/metrics"
	"weatherpush.app/models"
	"weatherpush.app/providers/cache"
)

func TestWeatherAPIProvider_GetCurrentWeather(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.String(), "/current.json")
		assert.Contains(t, r.URL.String(), "q=London")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`{
			"current": {
				"temp_c": 15.0,
				"humidity": 76,
				"wind_kph": 12.5,
				"last_updated": "2026-08-30 12:00",
				"condition": {
					"text": "Partly cloudy"
				}
			}
		}`))
		require.NoError(t, err)
	}))
	defer mockServer.Close()

	provider := NewWeatherAPIProvider(&config.WeatherConfig{
		APIKey:  "test-api-key",
		BaseURL: mockServer.URL,
	})

	weather, err := provider.GetCurrentWeather("London")

	assert.NoError(t, err)
	require.NotNil(t, weather)
	assert.True(t, weather.Complete())
	assert.Equal(t, 15.0, *weather.Temperature)
	assert.Equal(t, 76.0, *weather.Humidity)
	assert.Equal(t, "Partly cloudy", weather.Description)
	assert.Equal(t, 12.5, weather.WindSpeed)
	assert.Equal(t, "2026-08-30 12:00", weather.ObservedAt)
}

func TestWeatherAPIProvider_GetCurrentWeather_PartialPayload(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"current": {"humidity": 76}}`))
	}))
	defer mockServer.Close()

	provider := NewWeatherAPIProvider(&config.WeatherConfig{
		APIKey:  "test-api-key",
		BaseURL: mockServer.URL,
	})

	weather, err := provider.GetCurrentWeather("London")

	assert.NoError(t, err)
	require.NotNil(t, weather)
	assert.False(t, weather.Complete())
	assert.Nil(t, weather.Temperature)
	assert.Equal(t, 76.0, *weather.Humidity)
	assert.Empty(t, weather.Description)
}

func TestWeatherAPIProvider_GetCurrentWeather_NotFound(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer mockServer.Close()

	provider := NewWeatherAPIProvider(&config.WeatherConfig{
		APIKey:  "test-api-key",
		BaseURL: mockServer.URL,
	})

	weather, err := provider.GetCurrentWeather("NonExistentCity")

	assert.Error(t, err)
	assert.Nil(t, weather)

	var appErr *apperrors.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.NotFoundError, appErr.Type)
}

func TestWeatherAPIProvider_GetCurrentWeather_ServerError(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer mockServer.Close()

	provider := NewWeatherAPIProvider(&config.WeatherConfig{
		APIKey:  "test-api-key",
		BaseURL: mockServer.URL,
	})

	weather, err := provider.GetCurrentWeather("London")

	assert.Error(t, err)
	assert.Nil(t, weather)

	var appErr *apperrors.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ExternalAPIError, appErr.Type)
}

func TestWeatherAPIProvider_GetCurrentWeather_EmptyCity(t *testing.T) {
	provider := NewWeatherAPIProvider(&config.WeatherConfig{
		APIKey:  "test-api-key",
		BaseURL: "http://localhost",
	})

	weather, err := provider.GetCurrentWeather("")

	assert.Error(t, err)
	assert.Nil(t, weather)
}

func TestHTTPWebhookProvider_Post(t *testing.T) {
	var receivedBody map[string]interface{}
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&receivedBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer mockServer.Close()

	provider := NewHTTPWebhookProvider(&config.WebhookConfig{TimeoutSeconds: 5})

	err := provider.Post(mockServer.URL, map[string]string{"city": "Kyiv"})

	assert.NoError(t, err)
	assert.Equal(t, "Kyiv", receivedBody["city"])
}

func TestHTTPWebhookProvider_Post_NonSuccessStatus(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer mockServer.Close()

	provider := NewHTTPWebhookProvider(&config.WebhookConfig{TimeoutSeconds: 5})

	err := provider.Post(mockServer.URL, map[string]string{"city": "Kyiv"})

	assert.Error(t, err)

	var appErr *apperrors.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.WebhookError, appErr.Type)
}

func TestHTTPWebhookProvider_Post_ConnectionRefused(t *testing.T) {
	provider := NewHTTPWebhookProvider(&config.WebhookConfig{TimeoutSeconds: 1})

	err := provider.Post("http://127.0.0.1:1/hook", map[string]string{"city": "Kyiv"})

	assert.Error(t, err)

	var appErr *apperrors.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.WebhookError, appErr.Type)
}

// countingProvider tracks upstream calls behind the cache proxy
type countingProvider struct {
	calls int
}

func (p *countingProvider) GetCurrentWeather(string) (*models.WeatherSnapshot, error) {
	p.calls++
	temperature := 21.0
	humidity := 50.0
	return &models.WeatherSnapshot{
		Temperature: &temperature,
		Humidity:    &humidity,
		Description: "Sunny",
	}, nil
}

func TestWeatherCacheProxy_SharesUpstreamFetches(t *testing.T) {
	upstream := &countingProvider{}
	weatherCache := cache.NewWeatherCache(cache.NewMemoryCache())
	proxy := NewWeatherCacheProxy(upstream, weatherCache, time.Minute, metrics.NewCacheMetrics("memory"))

	first, err := proxy.GetCurrentWeather("Kyiv")
	assert.NoError(t, err)

	second, err := proxy.GetCurrentWeather("Kyiv")
	assert.NoError(t, err)

	assert.Equal(t, 1, upstream.calls, "second lookup served from cache")
	assert.Equal(t, *first.Temperature, *second.Temperature)
	assert.Equal(t, first.Description, second.Description)
}

func TestWeatherCacheProxy_DistinctCitiesFetchSeparately(t *testing.T) {
	upstream := &countingProvider{}
	weatherCache := cache.NewWeatherCache(cache.NewMemoryCache())
	proxy := NewWeatherCacheProxy(upstream, weatherCache, time.Minute, metrics.NewCacheMetrics("memory"))

	_, err := proxy.GetCurrentWeather("Kyiv")
	assert.NoError(t, err)
	_, err = proxy.GetCurrentWeather("London")
	assert.NoError(t, err)

	assert.Equal(t, 2, upstream.calls)
}

func TestNewWeatherCache_Factory(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		weatherCache, err := NewWeatherCache(&config.CacheConfig{Type: "memory", TTLMinutes: 5})
		assert.NoError(t, err)
		assert.NotNil(t, weatherCache)
	})

	t.Run("UnknownType", func(t *testing.T) {
		weatherCache, err := NewWeatherCache(&config.CacheConfig{Type: "memcached"})
		assert.Error(t, err)
		assert.Nil(t, weatherCache)

		var appErr *apperrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, apperrors.ConfigurationError, appErr.Type)
	})

	t.Run("RedisUnreachable", func(t *testing.T) {
		weatherCache, err := NewWeatherCache(&config.CacheConfig{
			Type:      "redis",
			RedisAddr: "127.0.0.1:1",
		})
		assert.Error(t, err)
		assert.Nil(t, weatherCache)
	})
}

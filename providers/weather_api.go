package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"weatherpush.app/config"
	"weatherpush.app/errors"
	"weatherpush.app/models"
)

// WeatherAPIProvider implements WeatherProvider for WeatherAPI.com
type WeatherAPIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewWeatherAPIProvider creates a new WeatherAPI.com provider
func NewWeatherAPIProvider(config *config.WeatherConfig) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetCurrentWeather retrieves weather data from WeatherAPI.com. Individual
// missing fields produce a partial snapshot rather than an error; downstream
// consumers decide how to render incomplete data.
func (p *WeatherAPIProvider) GetCurrentWeather(city string) (*models.WeatherSnapshot, error) {
	if city == "" {
		return nil, errors.NewValidationError("city cannot be empty")
	}

	requestURL := fmt.Sprintf("%s/current.json?key=%s&q=%s&aqi=no", p.baseURL, p.apiKey, url.QueryEscape(city))

	resp, err := p.client.Get(requestURL)
	if err != nil {
		return nil, errors.NewExternalAPIError("failed to get weather data", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			// Ignore close error as it's not critical for the main operation
			_ = closeErr
		}
	}()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
		return nil, errors.NewNotFoundError("city not found")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewExternalAPIError(fmt.Sprintf("weather API returned status code %d", resp.StatusCode), nil)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.NewExternalAPIError("failed to decode weather data", err)
	}

	current, ok := result["current"].(map[string]interface{})
	if !ok {
		return nil, errors.NewExternalAPIError("invalid weather data format: missing current field", nil)
	}

	snapshot := &models.WeatherSnapshot{}

	if temperature, ok := current["temp_c"].(float64); ok {
		snapshot.Temperature = &temperature
	}
	if humidity, ok := current["humidity"].(float64); ok {
		snapshot.Humidity = &humidity
	}
	if condition, ok := current["condition"].(map[string]interface{}); ok {
		if description, ok := condition["text"].(string); ok {
			snapshot.Description = description
		}
	}
	if windSpeed, ok := current["wind_kph"].(float64); ok {
		snapshot.WindSpeed = windSpeed
	}
	if observedAt, ok := current["last_updated"].(string); ok {
		snapshot.ObservedAt = observedAt
	}

	return snapshot, nil
}

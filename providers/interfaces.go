package providers

import "weatherpush.app/models"

// WeatherProvider defines the interface for fetching weather data
type WeatherProvider interface {
	GetCurrentWeather(city string) (*models.WeatherSnapshot, error)
}

// EmailProvider defines the interface for sending emails
type EmailProvider interface {
	SendEmail(to, subject, body string, isHTML bool) error
}

// WebhookProvider defines the interface for posting payloads to webhook URLs
type WebhookProvider interface {
	Post(url string, payload interface{}) error
}

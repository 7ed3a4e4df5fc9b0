package service

import (
	"fmt"
	"log"

	"weatherpush.app/errors"
	"weatherpush.app/models"
	"weatherpush.app/providers"
)

// UnavailableBody is the fallback email body used when the persisted record
// is missing any of temperature, humidity or description.
const UnavailableBody = "Weather data is unavailable at the moment."

// EmailService handles email operations using a provider
type EmailService struct {
	provider providers.EmailProvider
}

// NewEmailService creates a new email service with the specified provider
func NewEmailService(provider providers.EmailProvider) *EmailService {
	return &EmailService{
		provider: provider,
	}
}

// SendConfirmationEmail sends an email with a confirmation link
func (s *EmailService) SendConfirmationEmail(email, confirmURL, city string) error {
	log.Printf("[DEBUG] SendConfirmationEmail called for: %s, city: %s\n", email, city)

	if email == "" {
		return errors.NewValidationError("email cannot be empty")
	}
	if confirmURL == "" {
		return errors.NewValidationError("confirmation URL cannot be empty")
	}
	if city == "" {
		return errors.NewValidationError("city cannot be empty")
	}

	subject := fmt.Sprintf("Confirm your weather subscription for %s", city)
	htmlContent := fmt.Sprintf(
		"<p>Please confirm your subscription to weather updates for %s by clicking the following link:</p>"+
			"<p><a href=\"%s\">Confirm Subscription</a></p>",
		city, confirmURL,
	)

	return s.provider.SendEmail(email, subject, htmlContent, true)
}

// SendWeatherUpdateEmail sends a plain-text weather summary to a subscriber.
// When the record is incomplete the generic unavailable body is sent instead
// of a partial summary.
func (s *EmailService) SendWeatherUpdateEmail(to, city string, record *models.WeatherRecord) error {
	log.Printf("[DEBUG] SendWeatherUpdateEmail called for: %s, city: %s\n", to, city)

	if to == "" {
		return errors.NewValidationError("email cannot be empty")
	}
	if city == "" {
		return errors.NewValidationError("city cannot be empty")
	}
	if record == nil {
		return errors.NewValidationError("weather record cannot be nil")
	}

	subject := fmt.Sprintf("Weather update for %s", city)
	return s.provider.SendEmail(to, subject, ComposeWeatherUpdateBody(record), false)
}

// ComposeWeatherUpdateBody renders the email body for a persisted record.
func ComposeWeatherUpdateBody(record *models.WeatherRecord) string {
	snapshot := record.Snapshot()
	if !snapshot.Complete() {
		return UnavailableBody
	}

	return fmt.Sprintf("Temperature: %.1f\nHumidity: %.1f\nDescription: %s",
		*snapshot.Temperature, *snapshot.Humidity, snapshot.Description)
}

package service

import (
	"weatherpush.app/models"
)

// WeatherServiceInterface defines the interface for weather operations
type WeatherServiceInterface interface {
	GetWeather(city string) (*models.WeatherSnapshot, error)
}

// SubscriptionServiceInterface defines the operations the API layer calls
type SubscriptionServiceInterface interface {
	Subscribe(req *models.SubscriptionRequest) (*models.SubscriptionResponse, error)
	ConfirmSubscription(token string) error
	Unsubscribe(token string) error
	AuthorizeStream(token, liveToken string) (*models.Subscription, error)
}

// EmailServiceInterface defines the interface for email operations
type EmailServiceInterface interface {
	SendConfirmationEmail(email, confirmURL, city string) error
	SendWeatherUpdateEmail(to, city string, record *models.WeatherRecord) error
}

// JobScheduler is the slice of the scheduler the subscription service needs
type JobScheduler interface {
	ScheduleNew(subscription *models.Subscription)
	Unschedule(id uint)
}

// SubscriptionRepositoryInterface defines the interface for subscription data operations
type SubscriptionRepositoryInterface interface {
	FindAll() ([]models.Subscription, error)
	FindByID(id uint) (*models.Subscription, error)
	FindByEmail(email string) (*models.Subscription, error)
	FindByToken(token string) (*models.Subscription, error)
	FindByTokens(token, liveToken string) (*models.Subscription, error)
	Create(subscription *models.Subscription) error
	UpdateConfirmed(id uint) error
	Delete(subscription *models.Subscription) error
}

// Ensure implementations satisfy interfaces
var _ WeatherServiceInterface = (*WeatherService)(nil)
var _ SubscriptionServiceInterface = (*SubscriptionService)(nil)
var _ EmailServiceInterface = (*EmailService)(nil)

package service

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"weatherpush.app/config"
	"weatherpush.app/errors"
	"weatherpush.app/models"
	"weatherpush.app/providers"
)

// Frequency labels accepted by the subscribe operation, mapped to tick
// intervals in seconds.
var frequencyIntervals = map[string]int{
	"hourly": 3600,
	"daily":  86400,
}

// WeatherService handles weather-related operations
type WeatherService struct {
	provider providers.WeatherProvider
}

// NewWeatherService creates a new weather service with the specified provider
func NewWeatherService(provider providers.WeatherProvider) *WeatherService {
	return &WeatherService{
		provider: provider,
	}
}

// GetWeather retrieves current weather information for a specific city
func (s *WeatherService) GetWeather(city string) (*models.WeatherSnapshot, error) {
	log.Printf("[DEBUG] WeatherService.GetWeather called for city: %s\n", city)

	if city == "" {
		return nil, errors.NewValidationError("city cannot be empty")
	}

	weather, err := s.provider.GetCurrentWeather(city)
	if err != nil {
		log.Printf("[ERROR] Weather provider error: %v\n", err)
		return nil, err
	}

	return weather, nil
}

// SubscriptionService handles subscription-related business logic
type SubscriptionService struct {
	subscriptionRepo SubscriptionRepositoryInterface
	emailService     EmailServiceInterface
	scheduler        JobScheduler
	config           *config.Config
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(
	subscriptionRepo SubscriptionRepositoryInterface,
	emailService EmailServiceInterface,
	scheduler JobScheduler,
	config *config.Config,
) *SubscriptionService {
	return &SubscriptionService{
		subscriptionRepo: subscriptionRepo,
		emailService:     emailService,
		scheduler:        scheduler,
		config:           config,
	}
}

// Subscribe creates a new weather subscription and starts its job. A
// subscription without an email is confirmed from the start; one with an
// email stays unconfirmed until the confirmation link is visited, so its job
// runs without email delivery until then.
func (s *SubscriptionService) Subscribe(req *models.SubscriptionRequest) (*models.SubscriptionResponse, error) {
	log.Printf("[DEBUG] SubscriptionService.Subscribe called for city: %s, frequency: %s\n", req.City, req.Frequency)

	interval, err := s.validateSubscriptionRequest(req)
	if err != nil {
		return nil, err
	}

	if req.Email != "" {
		existing, err := s.subscriptionRepo.FindByEmail(req.Email)
		if err != nil {
			return nil, errors.NewDatabaseError("failed to check existing subscription", err)
		}
		if existing != nil {
			return nil, errors.NewAlreadyExistsError("email already subscribed")
		}
	}

	subscription := &models.Subscription{
		Email:           req.Email,
		City:            req.City,
		IntervalSeconds: interval,
		Confirmed:       req.Email == "",
		Token:           uuid.New().String(),
		LiveToken:       uuid.New().String(),
		WebhookURL:      req.WebhookURL,
	}

	if err := s.subscriptionRepo.Create(subscription); err != nil {
		return nil, errors.NewDatabaseError("failed to create subscription", err)
	}

	if req.Email != "" {
		confirmURL := fmt.Sprintf("%s/api/confirm/%s", s.config.AppBaseURL, subscription.Token)
		if err := s.emailService.SendConfirmationEmail(subscription.Email, confirmURL, subscription.City); err != nil {
			return nil, err
		}
	}

	s.scheduler.ScheduleNew(subscription)

	response := &models.SubscriptionResponse{
		ID:        subscription.ID,
		City:      subscription.City,
		Frequency: req.Frequency,
		LiveToken: subscription.LiveToken,
		CreatedAt: subscription.CreatedAt,
	}
	if req.Email != "" {
		response.Token = subscription.Token
	}
	return response, nil
}

func (s *SubscriptionService) validateSubscriptionRequest(req *models.SubscriptionRequest) (int, error) {
	if req.City == "" {
		return 0, errors.NewValidationError("city is required")
	}
	interval, ok := frequencyIntervals[req.Frequency]
	if !ok {
		return 0, errors.NewValidationError("frequency must be either 'hourly' or 'daily'")
	}
	return interval, nil
}

// ConfirmSubscription validates a confirmation token, marks the subscription
// confirmed and reschedules its job so email delivery becomes active. A job
// only re-reads the confirmed flag when it is (re)started.
func (s *SubscriptionService) ConfirmSubscription(tokenStr string) error {
	log.Printf("[DEBUG] ConfirmSubscription called with token: %s\n", tokenStr)

	if tokenStr == "" {
		return errors.NewValidationError("token cannot be empty")
	}

	subscription, err := s.subscriptionRepo.FindByToken(tokenStr)
	if err != nil {
		return errors.NewDatabaseError("failed to find subscription", err)
	}
	if subscription == nil {
		return errors.NewTokenError("token not found")
	}

	if err := s.subscriptionRepo.UpdateConfirmed(subscription.ID); err != nil {
		return errors.NewDatabaseError("failed to confirm subscription", err)
	}

	subscription.Confirmed = true
	s.scheduler.ScheduleNew(subscription)

	return nil
}

// Unsubscribe removes a subscription and stops its job. The record is
// deleted before the job is unscheduled, always in that order; a tick in
// flight between the two is a tolerated best-effort straggler.
func (s *SubscriptionService) Unsubscribe(tokenStr string) error {
	log.Printf("[DEBUG] Unsubscribe called with token: %s\n", tokenStr)

	if tokenStr == "" {
		return errors.NewValidationError("token cannot be empty")
	}

	subscription, err := s.subscriptionRepo.FindByToken(tokenStr)
	if err != nil {
		return errors.NewDatabaseError("failed to find subscription", err)
	}
	if subscription == nil {
		return errors.NewTokenError("token not found")
	}

	if err := s.subscriptionRepo.Delete(subscription); err != nil {
		return errors.NewDatabaseError("failed to delete subscription", err)
	}

	s.scheduler.Unschedule(subscription.ID)

	return nil
}

// AuthorizeStream resolves a live stream connection request. Both the
// subscription token and the live token must match, and the subscription
// must be confirmed.
func (s *SubscriptionService) AuthorizeStream(token, liveToken string) (*models.Subscription, error) {
	if token == "" || liveToken == "" {
		return nil, errors.NewValidationError("token and liveToken are required")
	}

	subscription, err := s.subscriptionRepo.FindByTokens(token, liveToken)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to find subscription", err)
	}
	if subscription == nil || !subscription.Confirmed {
		return nil, errors.NewNotFoundError("subscription not found or not confirmed")
	}

	return subscription, nil
}

// FrequencyLabel maps a tick interval back to its API-facing label.
func FrequencyLabel(intervalSeconds int) string {
	for label, interval := range frequencyIntervals {
		if interval == intervalSeconds {
			return label
		}
	}
	return fmt.Sprintf("%ds", intervalSeconds)
}

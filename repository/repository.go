// Package repository implements data access layer for the application
package repository

import (
	"errors"
	"log"

	"gorm.io/gorm"
	"weatherpush.app/models"
)

// SubscriptionRepository handles data access operations for subscriptions
type SubscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new repository for subscription data
func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// FindAll retrieves every persisted subscription
func (r *SubscriptionRepository) FindAll() ([]models.Subscription, error) {
	log.Println("[DEBUG] SubscriptionRepository.FindAll")

	var subscriptions []models.Subscription
	result := r.db.Find(&subscriptions)
	if result.Error != nil {
		log.Printf("[ERROR] Database error when loading subscriptions: %v\n", result.Error)
		return nil, result.Error
	}

	log.Printf("[DEBUG] Found %d subscriptions\n", len(subscriptions))
	return subscriptions, nil
}

// FindByID retrieves a subscription by its ID
func (r *SubscriptionRepository) FindByID(id uint) (*models.Subscription, error) {
	log.Printf("[DEBUG] SubscriptionRepository.FindByID: id=%d\n", id)

	var subscription models.Subscription
	result := r.db.First(&subscription, id)
	if result.Error != nil {
		log.Printf("[ERROR] Database error when finding subscription by ID: %v\n", result.Error)
		return nil, result.Error
	}

	return &subscription, nil
}

// FindByEmail retrieves a subscription by email address
func (r *SubscriptionRepository) FindByEmail(email string) (*models.Subscription, error) {
	log.Printf("[DEBUG] SubscriptionRepository.FindByEmail: email=%s\n", email)

	var subscription models.Subscription
	result := r.db.Where("email = ?", email).First(&subscription)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			log.Println("[DEBUG] No subscription found")
			return nil, nil
		}
		log.Printf("[ERROR] Database error when finding subscription: %v\n", result.Error)
		return nil, result.Error
	}

	return &subscription, nil
}

// FindByToken retrieves a subscription by its confirmation/unsubscribe token
func (r *SubscriptionRepository) FindByToken(token string) (*models.Subscription, error) {
	log.Printf("[DEBUG] SubscriptionRepository.FindByToken: token=%s\n", token)

	var subscription models.Subscription
	result := r.db.Where("token = ?", token).First(&subscription)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			log.Println("[DEBUG] No subscription found for token")
			return nil, nil
		}
		log.Printf("[ERROR] Database error when finding subscription by token: %v\n", result.Error)
		return nil, result.Error
	}

	return &subscription, nil
}

// FindByTokens retrieves a subscription matching both its token and live token.
// Used to authorize live stream connections.
func (r *SubscriptionRepository) FindByTokens(token, liveToken string) (*models.Subscription, error) {
	log.Printf("[DEBUG] SubscriptionRepository.FindByTokens: token=%s\n", token)

	var subscription models.Subscription
	result := r.db.Where("token = ? AND live_token = ?", token, liveToken).First(&subscription)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			log.Println("[DEBUG] No subscription found for token pair")
			return nil, nil
		}
		log.Printf("[ERROR] Database error when finding subscription by tokens: %v\n", result.Error)
		return nil, result.Error
	}

	return &subscription, nil
}

// Create persists a new subscription to the database
func (r *SubscriptionRepository) Create(subscription *models.Subscription) error {
	log.Printf("[DEBUG] SubscriptionRepository.Create: city=%s, interval=%d\n", subscription.City, subscription.IntervalSeconds)

	result := r.db.Create(subscription)
	if result.Error != nil {
		log.Printf("[ERROR] Database error when creating subscription: %v\n", result.Error)
		return result.Error
	}

	log.Printf("[DEBUG] Created subscription with ID: %d\n", subscription.ID)
	return nil
}

// UpdateConfirmed marks a subscription's email as confirmed
func (r *SubscriptionRepository) UpdateConfirmed(id uint) error {
	log.Printf("[DEBUG] SubscriptionRepository.UpdateConfirmed: id=%d\n", id)

	result := r.db.Model(&models.Subscription{}).Where("id = ?", id).Update("confirmed", true)
	if result.Error != nil {
		log.Printf("[ERROR] Database error when confirming subscription: %v\n", result.Error)
		return result.Error
	}

	return nil
}

// Delete removes a subscription from the database
func (r *SubscriptionRepository) Delete(subscription *models.Subscription) error {
	log.Printf("[DEBUG] SubscriptionRepository.Delete: id=%d\n", subscription.ID)

	result := r.db.Delete(subscription)
	if result.Error != nil {
		log.Printf("[ERROR] Database error when deleting subscription: %v\n", result.Error)
		return result.Error
	}

	log.Println("[DEBUG] Deleted subscription successfully")
	return nil
}

// WeatherRecordRepository handles data access operations for weather records
type WeatherRecordRepository struct {
	db *gorm.DB
}

// NewWeatherRecordRepository creates a new repository for weather records
func NewWeatherRecordRepository(db *gorm.DB) *WeatherRecordRepository {
	return &WeatherRecordRepository{db: db}
}

// Save persists a weather snapshot for a subscription and returns the stored
// record, including store-assigned ID and timestamp.
func (r *WeatherRecordRepository) Save(subscriptionID uint, snapshot *models.WeatherSnapshot) (*models.WeatherRecord, error) {
	log.Printf("[DEBUG] WeatherRecordRepository.Save: subscriptionID=%d\n", subscriptionID)

	record := &models.WeatherRecord{
		SubscriptionID: subscriptionID,
		Temperature:    snapshot.Temperature,
		Humidity:       snapshot.Humidity,
		Description:    snapshot.Description,
		WindSpeed:      snapshot.WindSpeed,
		ObservedAt:     snapshot.ObservedAt,
	}

	result := r.db.Create(record)
	if result.Error != nil {
		log.Printf("[ERROR] Database error when saving weather record: %v\n", result.Error)
		return nil, result.Error
	}

	return record, nil
}

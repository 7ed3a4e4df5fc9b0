// Package models defines data structures used throughout the application
package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscription represents a user's weather notification subscription.
// Email and WebhookURL are both optional; a subscription with neither is
// reachable only through its live stream.
type Subscription struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	Email           string         `json:"email,omitempty" gorm:"index"`
	City            string         `json:"city" gorm:"not null"`
	IntervalSeconds int            `json:"interval" gorm:"not null"`
	Confirmed       bool           `json:"confirmed" gorm:"default:false"`
	Token           string         `json:"-" gorm:"uniqueIndex;not null"`
	LiveToken       string         `json:"-" gorm:"uniqueIndex;not null"`
	WebhookURL      string         `json:"webhook_url,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

// Interval returns the subscription cadence as a duration.
func (s *Subscription) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// WeatherSnapshot represents weather data returned from the upstream API.
// Temperature and humidity are pointers so a partial upstream payload stays
// representable instead of collapsing to zero values.
type WeatherSnapshot struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Description string   `json:"description"`
	WindSpeed   float64  `json:"wind_speed"`
	ObservedAt  string   `json:"observed_at"`
}

// Complete reports whether temperature, humidity and description are all
// present, i.e. the snapshot can be summarized for an email body.
func (w *WeatherSnapshot) Complete() bool {
	return w.Temperature != nil && w.Humidity != nil && w.Description != ""
}

// WeatherRecord is the persisted result of one scheduler tick. The record,
// not the raw snapshot, is the payload delivered to every sink so all of
// them observe the same shape.
type WeatherRecord struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	SubscriptionID uint      `json:"subscription_id" gorm:"index;not null"`
	Temperature    *float64  `json:"temperature"`
	Humidity       *float64  `json:"humidity"`
	Description    string    `json:"description"`
	WindSpeed      float64   `json:"wind_speed"`
	ObservedAt     string    `json:"observed_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// Snapshot returns the weather portion of the record.
func (r *WeatherRecord) Snapshot() WeatherSnapshot {
	return WeatherSnapshot{
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Description: r.Description,
		WindSpeed:   r.WindSpeed,
		ObservedAt:  r.ObservedAt,
	}
}

// SubscriptionRequest represents data required to create a subscription
type SubscriptionRequest struct {
	Email      string `json:"email" form:"email" binding:"omitempty,email"`
	City       string `json:"city" form:"city" binding:"required"`
	Frequency  string `json:"frequency" form:"frequency" binding:"required,oneof=hourly daily"`
	WebhookURL string `json:"webhook_url" form:"webhook_url" binding:"omitempty,url"`
}

// SubscriptionResponse is returned after a successful subscribe call.
type SubscriptionResponse struct {
	ID        uint      `json:"id"`
	City      string    `json:"city"`
	Frequency string    `json:"frequency"`
	Token     string    `json:"token,omitempty"`
	LiveToken string    `json:"live_token"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorResponse represents an error message structure for API responses
type ErrorResponse struct {
	Error string `json:"error"`
}

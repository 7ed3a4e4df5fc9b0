// Package scheduler implements the per-subscription job engine: one
// recurring job per active subscription driving the fetch-persist-notify
// cycle, plus the registry of connected live stream listeners.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"weatherpush.app/errors"
	"weatherpush.app/metrics"
	"weatherpush.app/models"
)

// WeatherSource fetches a weather snapshot for a city
type WeatherSource interface {
	GetCurrentWeather(city string) (*models.WeatherSnapshot, error)
}

// RecordStore persists weather snapshots and returns the stored record
type RecordStore interface {
	Save(subscriptionID uint, snapshot *models.WeatherSnapshot) (*models.WeatherRecord, error)
}

// SubscriptionLister loads all persisted subscriptions at startup
type SubscriptionLister interface {
	FindAll() ([]models.Subscription, error)
}

// EmailSink sends a weather update email for a persisted record
type EmailSink interface {
	SendWeatherUpdateEmail(to, city string, record *models.WeatherRecord) error
}

// WebhookSink posts a payload to a webhook URL
type WebhookSink interface {
	Post(url string, payload interface{}) error
}

// job is the runtime snapshot of one subscription's recurring work. The
// email address is captured only if the subscription was confirmed when the
// job started; a later confirmation takes effect on the next reschedule.
type job struct {
	subscriptionID uint
	city           string
	interval       time.Duration
	webhookURL     string
	email          string
	cancel         context.CancelFunc
	done           chan struct{}
}

// Scheduler owns the job table: at most one running job per subscription ID.
// Jobs tick independently; the only shared state is the job table itself and
// the listener registry.
type Scheduler struct {
	subscriptions SubscriptionLister
	source        WeatherSource
	records       RecordStore
	email         EmailSink
	webhook       WebhookSink
	registry      *ListenerRegistry
	metrics       *metrics.SchedulerMetrics

	mu   sync.Mutex
	jobs map[uint]*job
}

// NewScheduler creates a scheduler with its collaborators injected
func NewScheduler(
	subscriptions SubscriptionLister,
	source WeatherSource,
	records RecordStore,
	email EmailSink,
	webhook WebhookSink,
	registry *ListenerRegistry,
	schedulerMetrics *metrics.SchedulerMetrics,
) *Scheduler {
	return &Scheduler{
		subscriptions: subscriptions,
		source:        source,
		records:       records,
		email:         email,
		webhook:       webhook,
		registry:      registry,
		metrics:       schedulerMetrics,
		jobs:          make(map[uint]*job),
	}
}

// Registry returns the live listener registry shared with the transport layer
func (s *Scheduler) Registry() *ListenerRegistry {
	return s.registry
}

// ActiveJobs returns the number of currently scheduled jobs
func (s *Scheduler) ActiveJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// StartAll loads every persisted subscription and starts one job per record.
// A store failure here is fatal: the process must not come up silently
// running zero jobs.
func (s *Scheduler) StartAll() error {
	subscriptions, err := s.subscriptions.FindAll()
	if err != nil {
		return errors.NewDatabaseError("failed to load subscriptions for scheduling", err)
	}

	for i := range subscriptions {
		s.ScheduleNew(&subscriptions[i])
	}

	slog.Info("Started subscription jobs", "count", len(subscriptions))
	return nil
}

// ScheduleNew derives a job snapshot from the subscription's current
// persisted state and (re)starts its job. An existing job for the same ID is
// cancelled first, so there is never more than one ticking job per
// subscription. The call returns promptly; all network and database work
// happens inside the tick body.
func (s *Scheduler) ScheduleNew(subscription *models.Subscription) {
	email := ""
	if subscription.Confirmed {
		email = subscription.Email
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		subscriptionID: subscription.ID,
		city:           subscription.City,
		interval:       subscription.Interval(),
		webhookURL:     subscription.WebhookURL,
		email:          email,
		cancel:         cancel,
		done:           make(chan struct{}),
	}

	s.mu.Lock()
	if old, ok := s.jobs[j.subscriptionID]; ok {
		old.cancel()
		s.metrics.ActiveJobs.Dec()
	}
	s.jobs[j.subscriptionID] = j
	s.metrics.ActiveJobs.Inc()
	s.mu.Unlock()

	go s.runJob(ctx, j)
	slog.Info("Scheduled job", "subscription", j.subscriptionID, "city", j.city, "interval", j.interval)
}

// Unschedule stops and discards the job for the given subscription ID.
// Stopping a job that does not exist is a no-op.
func (s *Scheduler) Unschedule(id uint) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if ok {
		j.cancel()
		delete(s.jobs, id)
		s.metrics.ActiveJobs.Dec()
	}
	s.mu.Unlock()

	if ok {
		slog.Info("Unscheduled job", "subscription", id)
	}
}

// StopAll stops every job and waits for their goroutines to exit. A job that
// does not stop in time is logged and skipped so the rest still stop.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	stopped := make([]*job, 0, len(s.jobs))
	for id, j := range s.jobs {
		j.cancel()
		stopped = append(stopped, j)
		delete(s.jobs, id)
		s.metrics.ActiveJobs.Dec()
	}
	s.mu.Unlock()

	for _, j := range stopped {
		select {
		case <-j.done:
		case <-time.After(10 * time.Second):
			slog.Warn("Job did not stop in time", "subscription", j.subscriptionID)
		}
	}

	slog.Info("Stopped all subscription jobs", "count", len(stopped))
}

// runJob drives one subscription's tick loop. The first tick fires
// immediately so new subscribers do not wait a full interval for data. The
// single goroutine plus sequential select means ticks for one job never
// overlap.
func (s *Scheduler) runJob(ctx context.Context, j *job) {
	defer close(j.done)

	s.runTick(ctx, j)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runTick(ctx, j)
		}
	}
}

// runTick executes one fetch-persist-fan-out cycle. Fetch or persist
// failures abort the tick; webhook, email and live delivery are each
// isolated so one failing sink never suppresses the others.
func (s *Scheduler) runTick(ctx context.Context, j *job) {
	// A cancelled job must not tick even if the timer fire and the stop
	// raced inside the select.
	if ctx.Err() != nil {
		return
	}

	snapshot, err := s.source.GetCurrentWeather(j.city)
	if err != nil {
		slog.Error("Weather fetch failed", "subscription", j.subscriptionID, "city", j.city, "error", err)
		s.metrics.Ticks.WithLabelValues(metrics.TickResultFetchError).Inc()
		s.notifyListenerError(j.subscriptionID, err)
		return
	}

	record, err := s.records.Save(j.subscriptionID, snapshot)
	if err != nil {
		slog.Error("Weather record save failed", "subscription", j.subscriptionID, "error", err)
		s.metrics.Ticks.WithLabelValues(metrics.TickResultPersistError).Inc()
		return
	}

	if j.webhookURL != "" {
		if err := s.webhook.Post(j.webhookURL, record); err != nil {
			slog.Error("Webhook delivery failed", "subscription", j.subscriptionID, "url", j.webhookURL, "error", err)
			s.metrics.SinkFailures.WithLabelValues(metrics.SinkWebhook).Inc()
		}
	}

	if j.email != "" {
		if err := s.email.SendWeatherUpdateEmail(j.email, j.city, record); err != nil {
			slog.Error("Email delivery failed", "subscription", j.subscriptionID, "error", err)
			s.metrics.SinkFailures.WithLabelValues(metrics.SinkEmail).Inc()
		}
	}

	for _, listener := range s.registry.Listeners(j.subscriptionID) {
		if err := listener.Send(Event{Type: EventUpdate, Data: record}); err != nil {
			slog.Error("Live delivery failed", "subscription", j.subscriptionID, "error", err)
			s.metrics.SinkFailures.WithLabelValues(metrics.SinkLive).Inc()
		}
	}

	s.metrics.Ticks.WithLabelValues(metrics.TickResultOK).Inc()
}

// notifyListenerError pushes a fetch failure to the currently connected
// listeners so live consumers see the gap instead of silence.
func (s *Scheduler) notifyListenerError(id uint, cause error) {
	for _, listener := range s.registry.Listeners(id) {
		if err := listener.Send(Event{Type: EventError, Data: map[string]string{"message": cause.Error()}}); err != nil {
			slog.Error("Live error delivery failed", "subscription", id, "error", err)
			s.metrics.SinkFailures.WithLabelValues(metrics.SinkLive).Inc()
		}
	}
}

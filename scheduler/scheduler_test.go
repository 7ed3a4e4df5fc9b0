package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "weatherpush.app/errors"
	"weatherpush.app/metrics"
	"weatherpush.app/models"
)

// fakeWeatherSource counts fetches and signals each one so tests can wait
// for ticks instead of guessing with sleeps.
type fakeWeatherSource struct {
	mu    sync.Mutex
	err   error
	calls int
	fired chan struct{}
}

func newFakeWeatherSource() *fakeWeatherSource {
	return &fakeWeatherSource{fired: make(chan struct{}, 100)}
}

func (f *fakeWeatherSource) GetCurrentWeather(city string) (*models.WeatherSnapshot, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	f.mu.Unlock()

	select {
	case f.fired <- struct{}{}:
	default:
	}

	if err != nil {
		return nil, err
	}

	temperature := 10.0
	humidity := 80.0
	return &models.WeatherSnapshot{
		Temperature: &temperature,
		Humidity:    &humidity,
		Description: "Cloudy",
	}, nil
}

func (f *fakeWeatherSource) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeWeatherSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRecordStore struct {
	mu     sync.Mutex
	err    error
	saved  []uint
	nextID uint
}

func (f *fakeRecordStore) Save(subscriptionID uint, snapshot *models.WeatherSnapshot) (*models.WeatherRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	f.nextID++
	f.saved = append(f.saved, subscriptionID)
	return &models.WeatherRecord{
		ID:             f.nextID,
		SubscriptionID: subscriptionID,
		Temperature:    snapshot.Temperature,
		Humidity:       snapshot.Humidity,
		Description:    snapshot.Description,
		WindSpeed:      snapshot.WindSpeed,
		ObservedAt:     snapshot.ObservedAt,
		CreatedAt:      time.Now(),
	}, nil
}

func (f *fakeRecordStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type emailCall struct {
	to     string
	city   string
	record *models.WeatherRecord
}

type fakeEmailSink struct {
	mu    sync.Mutex
	err   error
	calls []emailCall
	sent  chan struct{}
}

func newFakeEmailSink() *fakeEmailSink {
	return &fakeEmailSink{sent: make(chan struct{}, 100)}
}

func (f *fakeEmailSink) SendWeatherUpdateEmail(to, city string, record *models.WeatherRecord) error {
	f.mu.Lock()
	f.calls = append(f.calls, emailCall{to: to, city: city, record: record})
	err := f.err
	f.mu.Unlock()

	select {
	case f.sent <- struct{}{}:
	default:
	}
	return err
}

func (f *fakeEmailSink) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeWebhookSink struct {
	mu    sync.Mutex
	err   error
	urls  []string
	fired chan struct{}
}

func newFakeWebhookSink() *fakeWebhookSink {
	return &fakeWebhookSink{fired: make(chan struct{}, 100)}
}

func (f *fakeWebhookSink) Post(url string, payload interface{}) error {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	err := f.err
	f.mu.Unlock()

	select {
	case f.fired <- struct{}{}:
	default:
	}
	return err
}

func (f *fakeWebhookSink) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.urls)
}

type fakeListener struct {
	mu       sync.Mutex
	err      error
	events   []Event
	received chan struct{}
}

func newFakeListener() *fakeListener {
	return &fakeListener{received: make(chan struct{}, 100)}
}

func (f *fakeListener) Send(event Event) error {
	f.mu.Lock()
	f.events = append(f.events, event)
	err := f.err
	f.mu.Unlock()

	select {
	case f.received <- struct{}{}:
	default:
	}
	return err
}

func (f *fakeListener) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *fakeListener) lastEvent() Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[len(f.events)-1]
}

type fakeLister struct {
	subscriptions []models.Subscription
	err           error
}

func (f *fakeLister) FindAll() ([]models.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.subscriptions, nil
}

type schedulerFixture struct {
	scheduler *Scheduler
	registry  *ListenerRegistry
	source    *fakeWeatherSource
	store     *fakeRecordStore
	email     *fakeEmailSink
	webhook   *fakeWebhookSink
	lister    *fakeLister
}

func newFixture() *schedulerFixture {
	schedulerMetrics := metrics.NewSchedulerMetrics()
	registry := NewListenerRegistry(schedulerMetrics)

	f := &schedulerFixture{
		registry: registry,
		source:   newFakeWeatherSource(),
		store:    &fakeRecordStore{},
		email:    newFakeEmailSink(),
		webhook:  newFakeWebhookSink(),
		lister:   &fakeLister{},
	}
	f.scheduler = NewScheduler(f.lister, f.source, f.store, f.email, f.webhook, registry, schedulerMetrics)
	return f
}

func waitSignal(t *testing.T, ch <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal(msg)
	}
}

func drain(ch <-chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func testSubscription(id uint) *models.Subscription {
	return &models.Subscription{
		ID:              id,
		City:            "Kyiv",
		IntervalSeconds: 1,
		Confirmed:       true,
	}
}

func TestScheduler_FirstTickFiresImmediately(t *testing.T) {
	f := newFixture()
	defer f.scheduler.StopAll()

	f.scheduler.ScheduleNew(testSubscription(1))

	waitSignal(t, f.source.fired, "expected an immediate first tick")
	assert.Eventually(t, func() bool { return f.store.saveCount() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_ScheduleNew_ReplacesExistingJob(t *testing.T) {
	f := newFixture()
	defer f.scheduler.StopAll()

	sub := testSubscription(1)
	for i := 0; i < 20; i++ {
		f.scheduler.ScheduleNew(sub)
	}

	assert.Equal(t, 1, f.scheduler.ActiveJobs())

	// Let the replaced jobs' immediate ticks settle, then measure the tick
	// rate: a single surviving job at a 1s interval produces at most a
	// couple of fetches over the observation window, never twenty.
	time.Sleep(500 * time.Millisecond)
	drain(f.source.fired)
	before := f.source.callCount()
	time.Sleep(1500 * time.Millisecond)
	after := f.source.callCount()

	assert.LessOrEqual(t, after-before, 2)
}

func TestScheduler_Unschedule_StopsFutureTicks(t *testing.T) {
	f := newFixture()
	defer f.scheduler.StopAll()

	f.scheduler.ScheduleNew(testSubscription(1))
	waitSignal(t, f.source.fired, "expected an immediate first tick")

	f.scheduler.Unschedule(1)
	assert.Equal(t, 0, f.scheduler.ActiveJobs())

	before := f.source.callCount()
	time.Sleep(1300 * time.Millisecond)
	assert.Equal(t, before, f.source.callCount(), "unscheduled job must not tick")
}

func TestScheduler_Unschedule_UnknownIDIsNoOp(t *testing.T) {
	f := newFixture()

	assert.NotPanics(t, func() { f.scheduler.Unschedule(42) })
	assert.Equal(t, 0, f.scheduler.ActiveJobs())
}

func TestScheduler_FetchFailure_AbortsTickAndRecovers(t *testing.T) {
	f := newFixture()
	defer f.scheduler.StopAll()

	f.source.setErr(apperrors.NewExternalAPIError("weather api down", nil))

	listener := newFakeListener()
	f.registry.Register(1, listener)

	sub := testSubscription(1)
	sub.Email = "a@b.com"
	sub.WebhookURL = "http://example.com/hook"
	f.scheduler.ScheduleNew(sub)

	waitSignal(t, f.source.fired, "expected an immediate first tick")
	waitSignal(t, listener.received, "expected an error event for the live listener")

	assert.Equal(t, 0, f.store.saveCount(), "failed fetch must not persist")
	assert.Equal(t, 0, f.webhook.callCount(), "failed fetch must not post webhook")
	assert.Equal(t, 0, f.email.callCount(), "failed fetch must not send email")
	assert.Equal(t, EventError, listener.lastEvent().Type)

	// The job stays scheduled: once the source recovers, the next tick
	// goes all the way through.
	f.source.setErr(nil)
	waitSignal(t, f.webhook.fired, "expected webhook delivery after the source recovered")
	assert.GreaterOrEqual(t, f.store.saveCount(), 1)
}

func TestScheduler_PersistFailure_SkipsDelivery(t *testing.T) {
	f := newFixture()
	defer f.scheduler.StopAll()

	f.store.err = apperrors.NewDatabaseError("insert failed", nil)

	listener := newFakeListener()
	f.registry.Register(1, listener)

	sub := testSubscription(1)
	sub.Email = "a@b.com"
	sub.WebhookURL = "http://example.com/hook"
	f.scheduler.ScheduleNew(sub)

	waitSignal(t, f.source.fired, "expected an immediate first tick")
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 0, f.webhook.callCount())
	assert.Equal(t, 0, f.email.callCount())
	assert.Equal(t, 0, listener.eventCount())
}

func TestScheduler_WebhookFailure_DoesNotSuppressOtherSinks(t *testing.T) {
	f := newFixture()
	defer f.scheduler.StopAll()

	f.webhook.err = apperrors.NewWebhookError("connection refused", nil)

	listener := newFakeListener()
	f.registry.Register(1, listener)

	sub := testSubscription(1)
	sub.Email = "a@b.com"
	sub.Confirmed = true
	sub.WebhookURL = "http://example.com/hook"
	f.scheduler.ScheduleNew(sub)

	waitSignal(t, f.email.sent, "expected email delivery despite webhook failure")
	waitSignal(t, listener.received, "expected live delivery despite webhook failure")
	assert.Equal(t, EventUpdate, listener.lastEvent().Type)
}

func TestScheduler_ListenerFailure_IsolatedFromOtherListeners(t *testing.T) {
	f := newFixture()
	defer f.scheduler.StopAll()

	failing := newFakeListener()
	failing.err = apperrors.NewExternalAPIError("dead connection", nil)
	healthy := newFakeListener()
	f.registry.Register(1, failing)
	f.registry.Register(1, healthy)

	f.scheduler.ScheduleNew(testSubscription(1))

	waitSignal(t, healthy.received, "expected delivery to the healthy listener")
	assert.Equal(t, EventUpdate, healthy.lastEvent().Type)
}

func TestScheduler_EmailRequiresConfirmationAtJobStart(t *testing.T) {
	f := newFixture()
	defer f.scheduler.StopAll()

	sub := &models.Subscription{
		ID:              1,
		City:            "Kyiv",
		IntervalSeconds: 1,
		Email:           "a@b.com",
		Confirmed:       false,
	}

	f.scheduler.ScheduleNew(sub)
	waitSignal(t, f.source.fired, "expected an immediate first tick")
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 0, f.email.callCount(), "unconfirmed subscription must not receive email")
	assert.GreaterOrEqual(t, f.store.saveCount(), 1, "persistence still happens without email")

	// Confirming and rescheduling activates email delivery on the next tick.
	sub.Confirmed = true
	f.scheduler.ScheduleNew(sub)

	waitSignal(t, f.email.sent, "expected email after confirm and reschedule")

	f.email.mu.Lock()
	call := f.email.calls[0]
	f.email.mu.Unlock()

	assert.Equal(t, "a@b.com", call.to)
	assert.Equal(t, "Kyiv", call.city)
	require.NotNil(t, call.record.Temperature)
	require.NotNil(t, call.record.Humidity)
	assert.Equal(t, 10.0, *call.record.Temperature)
	assert.Equal(t, 80.0, *call.record.Humidity)
	assert.Equal(t, "Cloudy", call.record.Description)

	// Exactly one email within the first tick.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, f.email.callCount())
}

func TestScheduler_NoSinksConfigured_StillPersistsAndFansOut(t *testing.T) {
	f := newFixture()
	defer f.scheduler.StopAll()

	listener := newFakeListener()
	f.registry.Register(1, listener)

	// Neither email nor webhook: a live-only subscription.
	f.scheduler.ScheduleNew(testSubscription(1))

	waitSignal(t, listener.received, "expected live delivery")
	assert.GreaterOrEqual(t, f.store.saveCount(), 1)
	assert.Equal(t, 0, f.email.callCount())
	assert.Equal(t, 0, f.webhook.callCount())
}

func TestScheduler_DeregisteredListenerReceivesNothing(t *testing.T) {
	f := newFixture()
	defer f.scheduler.StopAll()

	listener := newFakeListener()
	f.registry.Register(1, listener)

	f.scheduler.ScheduleNew(testSubscription(1))
	waitSignal(t, listener.received, "expected delivery to the registered listener")
	assert.Equal(t, 1, listener.eventCount())

	f.registry.Deregister(1, listener)

	time.Sleep(1300 * time.Millisecond)
	assert.Equal(t, 1, listener.eventCount(), "deregistered listener must not receive further events")
}

func TestScheduler_StartAll(t *testing.T) {
	t.Run("SchedulesEveryPersistedSubscription", func(t *testing.T) {
		f := newFixture()
		defer f.scheduler.StopAll()

		f.lister.subscriptions = []models.Subscription{
			{ID: 1, City: "Kyiv", IntervalSeconds: 1, Confirmed: true},
			{ID: 2, City: "London", IntervalSeconds: 1, Confirmed: true},
			{ID: 3, City: "Paris", IntervalSeconds: 1},
		}

		err := f.scheduler.StartAll()
		assert.NoError(t, err)
		assert.Equal(t, 3, f.scheduler.ActiveJobs())
	})

	t.Run("StoreFailureIsFatal", func(t *testing.T) {
		f := newFixture()

		f.lister.err = apperrors.NewDatabaseError("connection refused", nil)

		err := f.scheduler.StartAll()
		assert.Error(t, err)
		assert.Equal(t, 0, f.scheduler.ActiveJobs())
	})
}

func TestScheduler_StopAll(t *testing.T) {
	f := newFixture()

	f.scheduler.ScheduleNew(testSubscription(1))
	sub2 := testSubscription(2)
	sub2.City = "London"
	f.scheduler.ScheduleNew(sub2)

	waitSignal(t, f.source.fired, "expected first ticks")
	f.scheduler.StopAll()
	assert.Equal(t, 0, f.scheduler.ActiveJobs())

	time.Sleep(200 * time.Millisecond)
	drain(f.source.fired)
	before := f.source.callCount()
	time.Sleep(1300 * time.Millisecond)
	assert.Equal(t, before, f.source.callCount(), "stopped jobs must not tick")
}

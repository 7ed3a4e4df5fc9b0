package app

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"weatherpush.app/api"
	"weatherpush.app/config"
	"weatherpush.app/database"
	"weatherpush.app/metrics"
	"weatherpush.app/providers"
	"weatherpush.app/repository"
	"weatherpush.app/scheduler"
	"weatherpush.app/service"
)

// Application represents the main application with all its dependencies
type Application struct {
	config    *config.Config
	db        *gorm.DB
	server    *api.Server
	scheduler *scheduler.Scheduler
}

// NewApplication creates and initializes a new application instance
func NewApplication() (*Application, error) {
	app := &Application{}

	if err := app.loadConfiguration(); err != nil {
		return nil, err
	}

	if err := app.initializeDatabase(); err != nil {
		return nil, err
	}

	if err := app.initializeServices(); err != nil {
		return nil, err
	}

	return app, nil
}

func (app *Application) loadConfiguration() error {
	slog.Info("Loading configuration...")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return fmt.Errorf("load application configuration: %w", err)
	}

	app.config = cfg
	slog.Info("Configuration loaded successfully")
	return nil
}

func (app *Application) initializeDatabase() error {
	slog.Info("Initializing database...")

	db, err := database.InitDB(app.config.Database)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		return fmt.Errorf("initialize database connection: %w", err)
	}

	if err := database.RunMigrations(db); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		return fmt.Errorf("run database migrations: %w", err)
	}

	app.db = db
	slog.Info("Database initialized successfully")
	return nil
}

func (app *Application) initializeServices() error {
	slog.Info("Initializing services...")

	weatherProvider, err := app.createWeatherProvider()
	if err != nil {
		return fmt.Errorf("create weather provider: %w", err)
	}

	emailProvider := providers.NewSMTPEmailProvider(&app.config.Email)
	webhookProvider := providers.NewHTTPWebhookProvider(&app.config.Webhook)

	weatherService := service.NewWeatherService(weatherProvider)
	emailService := service.NewEmailService(emailProvider)

	subscriptionRepo := repository.NewSubscriptionRepository(app.db)
	recordRepo := repository.NewWeatherRecordRepository(app.db)

	schedulerMetrics := metrics.NewSchedulerMetrics()
	registry := scheduler.NewListenerRegistry(schedulerMetrics)

	app.scheduler = scheduler.NewScheduler(
		subscriptionRepo,
		weatherProvider,
		recordRepo,
		emailService,
		webhookProvider,
		registry,
		schedulerMetrics,
	)

	subscriptionService := service.NewSubscriptionService(
		subscriptionRepo,
		emailService,
		app.scheduler,
		app.config,
	)

	app.server = api.NewServer(app.config, weatherService, subscriptionService, registry)

	slog.Info("Services initialized successfully")
	return nil
}

// createWeatherProvider builds the upstream weather client wrapped in the
// configured cache so many subscriptions to the same city share fetches.
func (app *Application) createWeatherProvider() (providers.WeatherProvider, error) {
	weatherCache, err := providers.NewWeatherCache(&app.config.Cache)
	if err != nil {
		return nil, err
	}

	cacheMetrics := metrics.NewCacheMetrics(app.config.Cache.Type)
	upstream := providers.NewWeatherAPIProvider(&app.config.Weather)

	return providers.NewWeatherCacheProxy(upstream, weatherCache, app.config.Cache.TTL(), cacheMetrics), nil
}

// Start starts the application. The scheduler must come up before the HTTP
// server: a store failure while loading subscriptions aborts startup rather
// than silently running zero jobs.
func (app *Application) Start() error {
	slog.Info("Starting application...")

	slog.Info("Starting subscription jobs...")
	if err := app.scheduler.StartAll(); err != nil {
		slog.Error("Failed to start subscription jobs", "error", err)
		return fmt.Errorf("start subscription jobs: %w", err)
	}

	slog.Info("Starting HTTP server", "port", app.config.Server.Port)
	return app.server.Start()
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	slog.Info("Shutting down application...")

	if app.scheduler != nil {
		app.scheduler.StopAll()
	}

	if app.db != nil {
		if err := database.CloseDB(app.db); err != nil {
			slog.Warn("Error closing database", "error", err)
		}
	}

	slog.Info("Application shutdown complete")
	return nil
}

// Config returns the application configuration
func (app *Application) Config() *config.Config {
	return app.config
}

// Scheduler returns the job scheduler
func (app *Application) Scheduler() *scheduler.Scheduler {
	return app.scheduler
}

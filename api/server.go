package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"weatherpush.app/config"
	weathererr "weatherpush.app/errors"
	"weatherpush.app/models"
	"weatherpush.app/scheduler"
	"weatherpush.app/service"
)

// Server represents the HTTP server and API handler
type Server struct {
	router              *gin.Engine
	config              *config.Config
	weatherService      service.WeatherServiceInterface
	subscriptionService service.SubscriptionServiceInterface
	registry            *scheduler.ListenerRegistry
}

// NewServer creates and configures a new HTTP server
func NewServer(
	config *config.Config,
	weatherService service.WeatherServiceInterface,
	subscriptionService service.SubscriptionServiceInterface,
	registry *scheduler.ListenerRegistry,
) *Server {
	router := gin.Default()

	server := &Server{
		router:              router,
		config:              config,
		weatherService:      weatherService,
		subscriptionService: subscriptionService,
		registry:            registry,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/weather", s.getWeather)
		api.POST("/subscribe", s.subscribe)
		api.GET("/subscribe/stream", s.stream)
		api.GET("/confirm/:token", s.confirmSubscription)
		api.GET("/unsubscribe/:token", s.unsubscribe)
	}

	s.router.GET("/health", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Start begins the HTTP server
func (s *Server) Start() error {
	return s.router.Run(fmt.Sprintf(":%d", s.config.Server.Port))
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

func (s *Server) getWeather(c *gin.Context) {
	city := c.Query("city")
	if city == "" {
		s.handleError(c, weathererr.NewValidationError("city parameter is required"))
		return
	}

	slog.Debug("Getting weather for city", "city", city)
	weather, err := s.weatherService.GetWeather(city)
	if err != nil {
		slog.Error("Weather service error", "error", err, "city", city)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, weather)
}

func (s *Server) subscribe(c *gin.Context) {
	var req models.SubscriptionRequest
	slog.Debug("Handling subscription request")

	if err := c.ShouldBind(&req); err != nil {
		slog.Error("Request binding error", "error", err)
		s.handleError(c, weathererr.NewValidationError("invalid request format"))
		return
	}

	slog.Debug("Subscription request received", "email", req.Email, "city", req.City, "frequency", req.Frequency)

	response, err := s.subscriptionService.Subscribe(&req)
	if err != nil {
		slog.Error("Subscription error", "error", err, "email", req.Email, "city", req.City)
		s.handleError(c, err)
		return
	}

	slog.Debug("Subscription created successfully", "id", response.ID, "city", response.City)
	c.JSON(http.StatusOK, response)
}

func (s *Server) confirmSubscription(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		s.handleError(c, weathererr.NewValidationError("token parameter is required"))
		return
	}

	slog.Debug("Confirming subscription", "token", token)

	if err := s.subscriptionService.ConfirmSubscription(token); err != nil {
		slog.Error("Confirmation error", "error", err, "token", token)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Subscription confirmed successfully"})
}

func (s *Server) unsubscribe(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		s.handleError(c, weathererr.NewValidationError("token parameter is required"))
		return
	}

	slog.Debug("Unsubscribing", "token", token)

	if err := s.subscriptionService.Unsubscribe(token); err != nil {
		slog.Error("Unsubscribe error", "error", err, "token", token)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed successfully"})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleError handles different types of application errors
func (s *Server) handleError(c *gin.Context, err error) {
	var appErr *weathererr.AppError
	var statusCode int
	var message string

	if errors.As(err, &appErr) {
		switch appErr.Type {
		case weathererr.ValidationError:
			statusCode = http.StatusBadRequest
			message = appErr.Message
		case weathererr.NotFoundError:
			statusCode = http.StatusNotFound
			message = appErr.Message
		case weathererr.AlreadyExistsError:
			statusCode = http.StatusConflict
			message = appErr.Message
		case weathererr.ExternalAPIError:
			statusCode = http.StatusServiceUnavailable
			message = "External service unavailable"
		case weathererr.DatabaseError:
			statusCode = http.StatusInternalServerError
			message = "Internal server error"
		case weathererr.EmailError:
			statusCode = http.StatusServiceUnavailable
			message = "Unable to send email"
		case weathererr.WebhookError:
			statusCode = http.StatusServiceUnavailable
			message = "Unable to deliver webhook"
		case weathererr.TokenError:
			statusCode = http.StatusNotFound
			message = appErr.Message
		default:
			statusCode = http.StatusInternalServerError
			message = "Internal server error"
		}
	} else {
		statusCode = http.StatusInternalServerError
		message = "Internal server error"
	}

	c.JSON(statusCode, models.ErrorResponse{Error: message})
}

package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"activityhub.io/notifications/internal/transport/mw"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	// BasePath prefixes the notification routes, e.g. "/api/v1".
	BasePath       string
	CORSOrigins    []string
	RequestTimeout time.Duration
	// MetricsPath exposes Prometheus metrics when non-empty.
	MetricsPath string
}

// NewRouter sets up all Echo routes and middleware.
func NewRouter(h *Handler, resolver mw.Resolver, cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newValidator()
	e.HTTPErrorHandler = errorHandler

	// Global middleware
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(mw.TraceID())
	e.Use(mw.RequestLogger())
	e.Use(mw.Metrics())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, mw.ServiceTokenHeader, mw.TraceHeader},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		ExposeHeaders:    []string{mw.TraceHeader},
		AllowCredentials: true,
	}))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{Timeout: cfg.RequestTimeout}))
	}

	// Health and metrics (no auth required)
	e.GET("/health", h.Health)
	if cfg.MetricsPath != "" {
		e.GET(cfg.MetricsPath, echo.WrapHandler(promhttp.Handler()))
	}

	// API: requires a resolved principal. The access policy decides what it may do.
	api := e.Group(cfg.BasePath+"/notifications", mw.Authenticate(resolver))

	// Literal routes first so they are never captured by /:id.
	api.GET("", h.ListNotifications)
	api.POST("", h.CreateNotification)
	api.GET("/unread/count", h.GetUnreadCount)
	api.GET("/settings", h.GetSettings)
	api.PATCH("/settings", h.UpdateSettings)
	api.POST("/mark-read", h.MarkReadBulk)

	api.GET("/:id", h.GetNotification)
	api.PATCH("/:id/read", h.MarkRead)
	api.DELETE("/:id", h.Delete)

	return e
}

package mw

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/metrics"
)

// TraceHeader carries the request correlation id in both directions.
const TraceHeader = "X-Trace-ID"

// ServiceTokenHeader is the header internal services may use instead of a bearer token.
const ServiceTokenHeader = "X-Service-Token"

const principalKey = "principal"

// Resolver turns a raw credential into a principal.
type Resolver interface {
	Resolve(token string) (domain.Principal, error)
	ResolveService(token string) (domain.ServicePrincipal, error)
}

// Authenticate resolves the caller from the Authorization bearer token, or from the
// X-Service-Token header, and stores the principal in the echo.Context. Whether that
// principal may perform the operation is decided later by the access policy.
func Authenticate(r Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			var (
				p   domain.Principal
				err error
			)
			if token, ok := bearer(req.Header.Get(echo.HeaderAuthorization)); ok {
				p, err = r.Resolve(token)
			} else if token := req.Header.Get(ServiceTokenHeader); token != "" {
				p, err = r.ResolveService(token)
			} else {
				metrics.AuthFailures.WithLabelValues("missing").Inc()
				return domain.Unauthenticated("missing authentication credentials")
			}

			if err != nil {
				metrics.AuthFailures.WithLabelValues("invalid").Inc()
				log.Ctx(req.Context()).Debug().Err(err).Msg("credential rejected")
				var de *domain.Error
				if errors.As(err, &de) {
					return de
				}
				return domain.Unauthenticated("invalid authentication credentials")
			}

			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// Principal returns the caller stored by Authenticate, or nil.
func Principal(c echo.Context) domain.Principal {
	p, _ := c.Get(principalKey).(domain.Principal)
	return p
}

func bearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

// TraceID reads or generates the X-Trace-ID header and attaches a request-scoped logger
// carrying it to the request context, so log.Ctx(ctx) picks it up downstream.
func TraceID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		TargetHeader: TraceHeader,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			logger := log.Logger.With().Str("trace_id", id).Logger()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context())))
		},
	})
}

// TraceIDFrom returns the correlation id of the current request.
func TraceIDFrom(c echo.Context) string {
	if id := c.Response().Header().Get(TraceHeader); id != "" {
		return id
	}
	return c.Request().Header.Get(TraceHeader)
}

// RequestLogger logs one zerolog event per request.
func RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			var ev *zerolog.Event
			switch {
			case v.Status >= 500:
				ev = log.Error().Err(v.Error)
			case v.Status >= 400:
				ev = log.Warn()
			default:
				ev = log.Info()
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("trace_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

// Metrics records request latency by route template.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let the error handler write the status before it is read.
				c.Error(err)
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			metrics.APILatency.
				WithLabelValues(c.Request().Method, path, strconv.Itoa(c.Response().Status)).
				Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

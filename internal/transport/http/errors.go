package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/transport/mw"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

var statusByKind = map[domain.ErrorKind]int{
	domain.KindUnauthenticated: http.StatusUnauthorized,
	domain.KindForbidden:       http.StatusForbidden,
	domain.KindNotFound:        http.StatusNotFound,
	domain.KindValidation:      http.StatusUnprocessableEntity,
	domain.KindUnavailable:     http.StatusServiceUnavailable,
	domain.KindStorage:         http.StatusInternalServerError,
}

// errorHandler writes every failure as {"code","message","trace_id"}. Storage causes are
// logged, never returned.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := classify(err)
	body.TraceID = mw.TraceIDFrom(c)

	logger := log.Ctx(c.Request().Context())
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error().Err(err).Str("code", body.Code).Msg("request failed")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		logger.Info().Str("code", body.Code).Str("reason", body.Message).Msg("request denied")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to write error response")
	}
}

func classify(err error) (int, errorResponse) {
	var de *domain.Error
	if errors.As(err, &de) {
		status, ok := statusByKind[de.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		msg := de.Message
		if msg == "" {
			msg = strings.ToLower(strings.ReplaceAll(string(de.Kind), "_", " "))
		}
		return status, errorResponse{Code: string(de.Kind), Message: msg}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Code: codeFor(he.Code), Message: fmt.Sprint(he.Message)}
	}

	return http.StatusInternalServerError, errorResponse{
		Code:    string(domain.KindStorage),
		Message: "internal server error",
	}
}

// codeFor turns an HTTP status into an upper snake case code, e.g. METHOD_NOT_ALLOWED.
func codeFor(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}

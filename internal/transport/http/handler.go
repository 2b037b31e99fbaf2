package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"activityhub.io/notifications/internal/application"
	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/transport/mw"
)

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all HTTP handler methods.
type Handler struct {
	svc    *application.Service
	db     Pinger
	checks map[string]Pinger
}

// NewHandler creates a new Handler. db is always probed by /health; optional extra
// dependencies (such as the unread cache) can be added with WithHealthCheck.
func NewHandler(svc *application.Service, db Pinger) *Handler {
	return &Handler{svc: svc, db: db, checks: map[string]Pinger{}}
}

// WithHealthCheck adds a named dependency to /health.
func (h *Handler) WithHealthCheck(name string, p Pinger) *Handler {
	h.checks[name] = p
	return h
}

// --- Request / response shapes ---

type listParams struct {
	Status string `query:"status" validate:"omitempty,notifstatus"`
	Type   string `query:"type" validate:"omitempty,notiftype"`
	Limit  int    `query:"limit" validate:"gte=0"`
	Offset int    `query:"offset" validate:"gte=0"`
}

type paginationMeta struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

type listResponse struct {
	Notifications []*domain.Notification `json:"notifications"`
	Pagination    paginationMeta         `json:"pagination"`
}

type markReadResponse struct {
	NotificationID uuid.UUID     `json:"notification_id"`
	Status         domain.Status `json:"status"`
	ReadAt         *time.Time    `json:"read_at"`
}

type bulkRequest struct {
	NotificationIDs  []uuid.UUID             `json:"notification_ids" validate:"omitempty,max=500"`
	NotificationType *domain.NotificationType `json:"notification_type" validate:"omitempty,notiftype"`
	MarkAll          *bool                    `json:"mark_all"`
}

type bulkResponse struct {
	UpdatedCount int64  `json:"updated_count"`
	Message      string `json:"message"`
}

type deleteParams struct {
	Permanent bool `query:"permanent"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type settingsRequest struct {
	EmailEnabled    *bool                     `json:"email_enabled"`
	PushEnabled     *bool                     `json:"push_enabled"`
	InAppEnabled    *bool                     `json:"in_app_enabled"`
	EnabledTypes    []domain.NotificationType `json:"enabled_types" validate:"omitempty,dive,notiftype"`
	QuietHoursStart *string                   `json:"quiet_hours_start" validate:"omitempty,hhmm"`
	QuietHoursEnd   *string                   `json:"quiet_hours_end" validate:"omitempty,hhmm"`
}

func (r *settingsRequest) patch() domain.PreferencesPatch {
	p := domain.PreferencesPatch{
		EmailEnabled:    r.EmailEnabled,
		PushEnabled:     r.PushEnabled,
		InAppEnabled:    r.InAppEnabled,
		QuietHoursStart: r.QuietHoursStart,
		QuietHoursEnd:   r.QuietHoursEnd,
	}
	if r.EnabledTypes != nil {
		p.EnabledTypes = &r.EnabledTypes
	}
	return p
}

type createRequest struct {
	UserID           uuid.UUID               `json:"user_id" validate:"required"`
	ActorUserID      *uuid.UUID              `json:"actor_user_id"`
	NotificationType domain.NotificationType `json:"notification_type" validate:"required,notiftype"`
	TargetType       *domain.TargetType      `json:"target_type" validate:"omitempty,targettype"`
	TargetID         *uuid.UUID              `json:"target_id"`
	Title            string                  `json:"title" validate:"required,max=255"`
	Message          *string                 `json:"message"`
	Payload          map[string]any          `json:"payload"`
}

type createResponse struct {
	NotificationID *uuid.UUID `json:"notification_id"`
	CreatedAt      *time.Time `json:"created_at"`
	Status         string     `json:"status"`
	Reason         string     `json:"reason,omitempty"`
}

// --- Inbox handlers ---

// ListNotifications GET /notifications
func (h *Handler) ListNotifications(c echo.Context) error {
	var params listParams
	if err := bindValid(c, &params); err != nil {
		return err
	}

	req := application.ListRequest{Limit: params.Limit, Offset: params.Offset}
	if params.Status != "" {
		s := domain.Status(params.Status)
		req.Status = &s
	}
	if params.Type != "" {
		t := domain.NotificationType(params.Type)
		req.Type = &t
	}

	page, err := h.svc.List(c.Request().Context(), mw.Principal(c), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, listResponse{
		Notifications: page.Notifications,
		Pagination: paginationMeta{
			Total:   page.Total,
			Limit:   page.Limit,
			Offset:  page.Offset,
			HasMore: page.HasMore(),
		},
	})
}

// GetUnreadCount GET /notifications/unread/count
func (h *Handler) GetUnreadCount(c echo.Context) error {
	count, err := h.svc.UnreadCount(c.Request().Context(), mw.Principal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, count)
}

// GetNotification GET /notifications/:id
func (h *Handler) GetNotification(c echo.Context) error {
	id, err := notificationID(c)
	if err != nil {
		return err
	}
	n, err := h.svc.Get(c.Request().Context(), mw.Principal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

// MarkRead PATCH /notifications/:id/read
func (h *Handler) MarkRead(c echo.Context) error {
	id, err := notificationID(c)
	if err != nil {
		return err
	}
	n, err := h.svc.MarkRead(c.Request().Context(), mw.Principal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, markReadResponse{
		NotificationID: n.ID,
		Status:         n.Status,
		ReadAt:         n.ReadAt,
	})
}

// MarkReadBulk POST /notifications/mark-read
func (h *Handler) MarkReadBulk(c echo.Context) error {
	var req bulkRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	updated, err := h.svc.MarkReadBulk(c.Request().Context(), mw.Principal(c), application.BulkRequest{
		IDs:     req.NotificationIDs,
		Type:    req.NotificationType,
		MarkAll: req.MarkAll,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bulkResponse{
		UpdatedCount: updated,
		Message:      fmt.Sprintf("%d notifications marked as read", updated),
	})
}

// Delete DELETE /notifications/:id?permanent=bool
func (h *Handler) Delete(c echo.Context) error {
	id, err := notificationID(c)
	if err != nil {
		return err
	}
	var params deleteParams
	if err := bindValid(c, &params); err != nil {
		return err
	}

	res, err := h.svc.Delete(c.Request().Context(), mw.Principal(c), id, params.Permanent)
	if err != nil {
		return err
	}
	if !res.Found {
		return domain.NotFound("notification")
	}
	return c.JSON(http.StatusOK, deleteResponse{Success: true, Message: res.Message})
}

// --- Settings handlers ---

// GetSettings GET /notifications/settings
func (h *Handler) GetSettings(c echo.Context) error {
	prefs, err := h.svc.Settings(c.Request().Context(), mw.Principal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, prefs)
}

// UpdateSettings PATCH /notifications/settings
func (h *Handler) UpdateSettings(c echo.Context) error {
	var req settingsRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	prefs, err := h.svc.UpdateSettings(c.Request().Context(), mw.Principal(c), req.patch())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, prefs)
}

// --- Internal creation ---

// CreateNotification POST /notifications (service callers only)
func (h *Handler) CreateNotification(c echo.Context) error {
	var req createRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	res, err := h.svc.Create(c.Request().Context(), mw.Principal(c), domain.CreateNotificationInput{
		UserID:      req.UserID,
		ActorUserID: req.ActorUserID,
		Type:        req.NotificationType,
		TargetType:  req.TargetType,
		TargetID:    req.TargetID,
		Title:       req.Title,
		Message:     req.Message,
		Payload:     req.Payload,
	})
	if err != nil {
		return err
	}

	// Both outcomes are 201: a skipped notification is a successful request.
	if !res.Created() {
		return c.JSON(http.StatusCreated, createResponse{Status: "skipped", Reason: res.Reason})
	}
	return c.JSON(http.StatusCreated, createResponse{
		NotificationID: &res.Notification.ID,
		CreatedAt:      &res.Notification.CreatedAt,
		Status:         "created",
	})
}

// --- Healthcheck ---

// Health GET /health
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{"database": "ok"}
	if err := h.db.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		checks["database"] = "unavailable"
	}
	// Optional dependencies degrade the report but never fail it.
	for name, p := range h.checks {
		checks[name] = "ok"
		if err := p.Ping(ctx); err != nil {
			checks[name] = "unavailable"
		}
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	return c.JSON(status, map[string]any{
		"status": overall,
		"checks": checks,
	})
}

// --- Helpers ---

// bindValid binds path, query and body parameters, then validates. Malformed input is a
// validation failure, not a bad request.
func bindValid(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusUnsupportedMediaType {
			return err
		}
		return domain.Invalidf("malformed request: %s", bindMessage(err))
	}
	return c.Validate(dst)
}

func bindMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			return he.Internal.Error()
		}
		return fmt.Sprint(he.Message)
	}
	return err.Error()
}

func notificationID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, domain.Invalidf("notification_id must be a UUID")
	}
	return id, nil
}

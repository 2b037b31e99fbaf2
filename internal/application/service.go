package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/metrics"
	"activityhub.io/notifications/internal/policy"
)

// Pagination bounds the limit/offset of inbox listings.
type Pagination struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultPagination matches the public API documentation.
var DefaultPagination = Pagination{DefaultLimit: 20, MaxLimit: 100}

// Service holds all notification and settings use-cases.
type Service struct {
	repo     domain.Repository
	settings domain.SettingsRepository
	counts   CountCache
	paging   Pagination
}

// Option customises a Service.
type Option func(*Service)

// WithCountCache serves unread counts through c.
func WithCountCache(c CountCache) Option {
	return func(s *Service) {
		if c != nil {
			s.counts = c
		}
	}
}

// WithPagination overrides the listing bounds.
func WithPagination(p Pagination) Option {
	return func(s *Service) {
		if p.MaxLimit > 0 {
			s.paging.MaxLimit = p.MaxLimit
		}
		if p.DefaultLimit > 0 {
			s.paging.DefaultLimit = p.DefaultLimit
		}
	}
}

// NewService creates a new application Service.
func NewService(repo domain.Repository, settings domain.SettingsRepository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		settings: settings,
		counts:   NoopCountCache{},
		paging:   DefaultPagination,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.paging.DefaultLimit > s.paging.MaxLimit {
		s.paging.DefaultLimit = s.paging.MaxLimit
	}
	return s
}

// ListRequest carries the optional filters of an inbox listing.
type ListRequest struct {
	Status *domain.Status
	Type   *domain.NotificationType
	Limit  int
	Offset int
}

// Page is one page of an inbox listing.
type Page struct {
	Notifications []*domain.Notification
	Total         int64
	Limit         int
	Offset        int
}

// HasMore reports whether another page follows.
func (p *Page) HasMore() bool {
	return int64(p.Offset+p.Limit) < p.Total
}

// List returns a page of the caller's notifications, narrowed by the premium visibility filter.
func (s *Service) List(ctx context.Context, p domain.Principal, req ListRequest) (*Page, error) {
	user, err := s.user(p, policy.OpList)
	if err != nil {
		return nil, err
	}

	page := &Page{
		Notifications: []*domain.Notification{},
		Limit:         s.limit(req.Limit),
		Offset:        max(req.Offset, 0),
	}

	filter := policy.Visibility(user.Subscription, req.Type)
	if filter.Empty {
		return page, nil
	}

	items, total, err := s.repo.List(ctx, domain.ListQuery{
		UserID:         user.UserID,
		Status:         req.Status,
		Type:           filter.Type,
		Limit:          page.Limit,
		Offset:         page.Offset,
		IncludePremium: filter.IncludePremium,
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if items != nil {
		page.Notifications = items
	}
	page.Total = total

	log.Ctx(ctx).Debug().
		Str("user", user.UserID.String()).
		Int("count", len(items)).
		Int64("total", total).
		Msg("notifications retrieved")

	return page, nil
}

// UnreadCountView is an unread breakdown plus an explanatory note for free subscribers.
type UnreadCountView struct {
	domain.UnreadCount
	Note string `json:"note,omitempty"`
}

// PremiumHiddenNote tells free subscribers why two types never appear.
const PremiumHiddenNote = "Premium-exclusive notification types (profile_view, new_favorite) are not included"

// UnreadCount returns the caller's unread breakdown. Premium-exclusive types are absent, not
// zero, for free subscribers, and do not contribute to the total.
func (s *Service) UnreadCount(ctx context.Context, p domain.Principal) (*UnreadCountView, error) {
	user, err := s.user(p, policy.OpUnreadCount)
	if err != nil {
		return nil, err
	}

	filter := policy.Visibility(user.Subscription, nil)
	view := &UnreadCountView{}
	if !filter.IncludePremium {
		view.Note = PremiumHiddenNote
	}

	cached, gen, ok := s.counts.Get(ctx, user.UserID, filter.IncludePremium)
	if ok {
		metrics.CountCacheLookups.WithLabelValues("hit").Inc()
		view.UnreadCount = *filter.RestrictCount(cached)
		return view, nil
	}
	metrics.CountCacheLookups.WithLabelValues("miss").Inc()

	raw, err := s.repo.CountUnread(ctx, user.UserID, filter.IncludePremium)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}

	restricted := filter.RestrictCount(raw)
	s.counts.Set(ctx, user.UserID, filter.IncludePremium, gen, restricted)
	view.UnreadCount = *restricted
	return view, nil
}

// Get returns one of the caller's notifications. It is not subject to the premium filter.
func (s *Service) Get(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Notification, error) {
	user, err := s.user(p, policy.OpGet)
	if err != nil {
		return nil, err
	}

	n, err := s.repo.GetByID(ctx, user.UserID, id)
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	if err := ownedBy(user, policy.OpGet, n); err != nil {
		return nil, err
	}
	return n, nil
}

// MarkRead marks one notification read. Repeating it, or marking an archived notification,
// succeeds without changing read_at or status.
func (s *Service) MarkRead(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Notification, error) {
	user, err := s.user(p, policy.OpMarkRead)
	if err != nil {
		return nil, err
	}

	n, err := s.repo.MarkRead(ctx, user.UserID, id)
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	if err := ownedBy(user, policy.OpMarkRead, n); err != nil {
		return nil, err
	}
	s.counts.Invalidate(ctx, user.UserID)

	log.Ctx(ctx).Info().
		Str("id", id.String()).
		Str("user", user.UserID.String()).
		Str("status", string(n.Status)).
		Msg("notification marked read")

	return n, nil
}

// BulkRequest selects the notifications of a bulk mark-read.
type BulkRequest struct {
	IDs     []uuid.UUID
	Type    *domain.NotificationType
	MarkAll *bool
}

// MarkReadBulk marks the selected unread notifications read and returns how many changed.
// Explicit ids take precedence over a type, which takes precedence over "all".
func (s *Service) MarkReadBulk(ctx context.Context, p domain.Principal, req BulkRequest) (int64, error) {
	user, err := s.user(p, policy.OpBulkMarkRead)
	if err != nil {
		return 0, err
	}

	if req.IDs == nil && req.Type == nil && req.MarkAll != nil && !*req.MarkAll {
		return 0, domain.Invalidf("nothing selected: provide notification_ids, notification_type or mark_all")
	}

	sel := policy.SelectBulk(req.IDs, req.Type)
	if sel.Mode == domain.SelectByIDs && len(sel.IDs) == 0 {
		return 0, nil
	}

	updated, err := s.repo.MarkReadBulk(ctx, user.UserID, sel)
	if err != nil {
		return 0, fmt.Errorf("mark read bulk: %w", err)
	}
	if updated > 0 {
		s.counts.Invalidate(ctx, user.UserID)
	}

	log.Ctx(ctx).Info().
		Str("user", user.UserID.String()).
		Str("mode", sel.Mode.String()).
		Int64("updated", updated).
		Msg("notifications marked read in bulk")

	return updated, nil
}

// Delete archives or permanently removes one of the caller's notifications. A missing or
// foreign id is reported through DeleteResult.Found, never as a forbidden error.
func (s *Service) Delete(ctx context.Context, p domain.Principal, id uuid.UUID, permanent bool) (domain.DeleteResult, error) {
	user, err := s.user(p, policy.OpDelete)
	if err != nil {
		return domain.DeleteResult{}, err
	}

	res, err := s.repo.Delete(ctx, user.UserID, id, permanent)
	if err != nil {
		return domain.DeleteResult{}, fmt.Errorf("delete notification: %w", err)
	}
	if !res.Found {
		return res, nil
	}
	s.counts.Invalidate(ctx, user.UserID)

	log.Ctx(ctx).Info().
		Str("id", id.String()).
		Str("user", user.UserID.String()).
		Bool("permanent", permanent).
		Msg("notification deleted")

	return res, nil
}

// PurgeArchived deletes old archived notifications. Called by a background scheduler.
func (s *Service) PurgeArchived(ctx context.Context, days int) {
	if days <= 0 {
		return
	}
	count, err := s.repo.PurgeArchived(ctx, days)
	if err != nil {
		log.Error().Err(err).Msg("archived notification purge failed")
		return
	}
	log.Info().Int64("deleted", count).Int("older_than_days", days).Msg("archived notification purge completed")
}

// user authorizes a user-scoped operation and returns the caller.
func (s *Service) user(p domain.Principal, op policy.Operation) (domain.UserPrincipal, error) {
	if err := policy.Authorize(p, op, nil).Err(); err != nil {
		return domain.UserPrincipal{}, err
	}
	return p.(domain.UserPrincipal), nil
}

// ownedBy collapses "absent" and "someone else's" into the same not-found error.
func ownedBy(user domain.UserPrincipal, op policy.Operation, n *domain.Notification) error {
	if n == nil || !policy.Authorize(user, op, &n.UserID).Allowed {
		return domain.NotFound("notification")
	}
	return nil
}

func (s *Service) limit(requested int) int {
	switch {
	case requested <= 0:
		return s.paging.DefaultLimit
	case requested > s.paging.MaxLimit:
		return s.paging.MaxLimit
	}
	return requested
}

package application

import (
	"context"

	"github.com/google/uuid"

	"activityhub.io/notifications/internal/domain"
)

// CountCache stores unread breakdowns per user and visibility tier.
// Implementations must treat failures as misses; the database stays the source of truth.
// The redis implementation lives in infrastructure/redis.
//
// Get also returns the user's cache generation. Invalidate advances it, and Set stores a
// count only while the generation it was given is still current, so a count read before a
// concurrent mutation is never cached after that mutation. A negative generation means the
// cache could not be read; Set ignores it.
type CountCache interface {
	Get(ctx context.Context, userID uuid.UUID, includePremium bool) (c *domain.UnreadCount, gen int64, ok bool)
	Set(ctx context.Context, userID uuid.UUID, includePremium bool, gen int64, c *domain.UnreadCount)
	// Invalidate drops every cached tier for the user.
	Invalidate(ctx context.Context, userID uuid.UUID)
}

// NoopCountCache disables caching.
type NoopCountCache struct{}

func (NoopCountCache) Get(context.Context, uuid.UUID, bool) (*domain.UnreadCount, int64, bool) {
	return nil, -1, false
}

func (NoopCountCache) Set(context.Context, uuid.UUID, bool, int64, *domain.UnreadCount) {}

func (NoopCountCache) Invalidate(context.Context, uuid.UUID) {}

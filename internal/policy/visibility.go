package policy

import "activityhub.io/notifications/internal/domain"

// TypeFilter is the effective type predicate for listing and counting.
type TypeFilter struct {
	// IncludePremium lets premium-exclusive types through.
	IncludePremium bool
	// Type narrows to one type when set.
	Type *domain.NotificationType
	// Empty means nothing can match; callers answer without querying storage.
	Empty bool
}

// Visibility computes the filter for a subscription level and an optional requested type.
// A free subscriber asking for a premium-exclusive type gets an empty result, not an error.
func Visibility(level domain.SubscriptionLevel, requested *domain.NotificationType) TypeFilter {
	f := TypeFilter{IncludePremium: level.HasPremiumAccess(), Type: requested}
	if requested != nil && requested.IsPremiumExclusive() && !f.IncludePremium {
		f.Empty = true
	}
	return f
}

// Allows reports whether a notification of type t passes the filter.
func (f TypeFilter) Allows(t domain.NotificationType) bool {
	if f.Empty {
		return false
	}
	if f.Type != nil && *f.Type != t {
		return false
	}
	return f.IncludePremium || !t.IsPremiumExclusive()
}

// VisibleTypes lists the types a filter lets through, in display order.
func (f TypeFilter) VisibleTypes() []domain.NotificationType {
	var out []domain.NotificationType
	for _, t := range domain.AllNotificationTypes {
		if f.Allows(t) {
			out = append(out, t)
		}
	}
	return out
}

// RestrictCount drops every key the filter hides and recomputes the total from what remains,
// so hidden types are absent from the breakdown and from the total alike.
func (f TypeFilter) RestrictCount(c *domain.UnreadCount) *domain.UnreadCount {
	out := &domain.UnreadCount{ByType: make(map[domain.NotificationType]int64)}
	if c == nil {
		return out
	}
	for t, n := range c.ByType {
		if !f.Allows(t) {
			continue
		}
		out.ByType[t] = n
		out.Total += n
	}
	return out
}

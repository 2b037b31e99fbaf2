package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType is the closed set of events a user can be notified about.
type NotificationType string

const (
	TypeActivityInvite   NotificationType = "activity_invite"
	TypeActivityReminder NotificationType = "activity_reminder"
	TypeActivityUpdate   NotificationType = "activity_update"
	TypeCommunityInvite  NotificationType = "community_invite"
	TypeNewMember        NotificationType = "new_member"
	TypeNewPost          NotificationType = "new_post"
	TypeComment          NotificationType = "comment"
	TypeReaction         NotificationType = "reaction"
	TypeMention          NotificationType = "mention"
	// TypeProfileView is only visible to club and premium subscribers.
	TypeProfileView NotificationType = "profile_view"
	// TypeNewFavorite is only visible to club and premium subscribers.
	TypeNewFavorite NotificationType = "new_favorite"
	TypeSystem      NotificationType = "system"
)

// AllNotificationTypes lists every type in display order.
var AllNotificationTypes = []NotificationType{
	TypeActivityInvite,
	TypeActivityReminder,
	TypeActivityUpdate,
	TypeCommunityInvite,
	TypeNewMember,
	TypeNewPost,
	TypeComment,
	TypeReaction,
	TypeMention,
	TypeProfileView,
	TypeNewFavorite,
	TypeSystem,
}

// Valid reports whether t belongs to the closed enum.
func (t NotificationType) Valid() bool {
	for _, known := range AllNotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsPremiumExclusive reports whether t is hidden from free subscribers in listings and counts.
func (t NotificationType) IsPremiumExclusive() bool {
	return t == TypeProfileView || t == TypeNewFavorite
}

// ParseNotificationType validates a raw string at the boundary.
func ParseNotificationType(s string) (NotificationType, error) {
	t := NotificationType(s)
	if !t.Valid() {
		return "", Invalidf("unknown notification type %q", s)
	}
	return t, nil
}

// Status is the lifecycle state of a notification.
type Status string

const (
	StatusUnread   Status = "unread"
	StatusRead     Status = "read"
	StatusArchived Status = "archived"
)

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusUnread, StatusRead, StatusArchived:
		return st, nil
	}
	return "", Invalidf("unknown notification status %q", s)
}

// TargetType names the kind of platform content a notification points at.
type TargetType string

const (
	TargetActivity TargetType = "activity"
	TargetPost     TargetType = "post"
	TargetComment  TargetType = "comment"
	TargetUser     TargetType = "user"
)

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	switch t {
	case TargetActivity, TargetPost, TargetComment, TargetUser:
		return true
	}
	return false
}

// SubscriptionLevel is the caller's plan, carried in the user token.
type SubscriptionLevel string

const (
	SubscriptionFree    SubscriptionLevel = "free"
	SubscriptionClub    SubscriptionLevel = "club"
	SubscriptionPremium SubscriptionLevel = "premium"
)

// HasPremiumAccess is true for club and premium; the two are equivalent for visibility.
func (l SubscriptionLevel) HasPremiumAccess() bool {
	return l == SubscriptionClub || l == SubscriptionPremium
}

// Actor is the user who triggered a notification. Display fields are joined in by storage.
type Actor struct {
	UserID       uuid.UUID `json:"user_id"`
	Username     string    `json:"username"`
	FirstName    *string   `json:"first_name,omitempty"`
	LastName     *string   `json:"last_name,omitempty"`
	MainPhotoURL *string   `json:"main_photo_url,omitempty"`
}

// Notification is the core domain entity. A nil Actor means system-originated.
type Notification struct {
	ID         uuid.UUID        `json:"notification_id"`
	UserID     uuid.UUID        `json:"user_id"`
	Actor      *Actor           `json:"actor,omitempty"`
	Type       NotificationType `json:"notification_type"`
	TargetType *TargetType      `json:"target_type,omitempty"`
	TargetID   *uuid.UUID       `json:"target_id,omitempty"`
	Title      string           `json:"title"`
	Message    *string          `json:"message,omitempty"`
	Status     Status           `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	ReadAt     *time.Time       `json:"read_at,omitempty"`
	Payload    map[string]any   `json:"payload,omitempty"`
}

// ListQuery holds the parameters of a paginated inbox listing.
type ListQuery struct {
	UserID         uuid.UUID
	Status         *Status
	Type           *NotificationType
	Limit          int
	Offset         int
	IncludePremium bool
}

// SelectionMode says which rows a bulk mark-read call targets.
type SelectionMode int

const (
	SelectAll SelectionMode = iota
	SelectByType
	SelectByIDs
)

func (m SelectionMode) String() string {
	switch m {
	case SelectByIDs:
		return "ids"
	case SelectByType:
		return "type"
	}
	return "all"
}

// BulkSelection is the resolved selection of a bulk mark-read. Exactly one mode is honored.
type BulkSelection struct {
	Mode SelectionMode
	IDs  []uuid.UUID
	Type NotificationType
}

// UnreadCount is the per-type breakdown of unread notifications.
// ByType never contains keys the caller is not allowed to see.
type UnreadCount struct {
	Total  int64                      `json:"total_unread"`
	ByType map[NotificationType]int64 `json:"by_type"`
}

// DeleteResult reports the outcome of an archive or hard delete.
type DeleteResult struct {
	Found     bool
	Permanent bool
	Message   string
}

// CreateNotificationInput is what a trusted service submits for one recipient.
type CreateNotificationInput struct {
	UserID      uuid.UUID
	ActorUserID *uuid.UUID
	Type        NotificationType
	TargetType  *TargetType
	TargetID    *uuid.UUID
	Title       string
	Message     *string
	Payload     map[string]any
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Preferences is the per-user notification settings record.
// QuietHours are advisory and only read by downstream delivery systems.
type Preferences struct {
	UserID          uuid.UUID          `json:"user_id"`
	EmailEnabled    bool               `json:"email_enabled"`
	PushEnabled     bool               `json:"push_enabled"`
	InAppEnabled    bool               `json:"in_app_enabled"`
	EnabledTypes    []NotificationType `json:"enabled_types"`
	QuietHoursStart *string            `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   *string            `json:"quiet_hours_end,omitempty"`
	UpdatedAt       *time.Time         `json:"updated_at,omitempty"`
}

// TypeEnabled reports whether t is in the enabled set.
func (p *Preferences) TypeEnabled(t NotificationType) bool {
	for _, et := range p.EnabledTypes {
		if et == t {
			return true
		}
	}
	return false
}

// DefaultPreferences is the record created on a user's first touch: every channel on and
// every type enabled, premium-exclusive ones included.
func DefaultPreferences(userID uuid.UUID) *Preferences {
	types := make([]NotificationType, len(AllNotificationTypes))
	copy(types, AllNotificationTypes)
	return &Preferences{
		UserID:       userID,
		EmailEnabled: true,
		PushEnabled:  true,
		InAppEnabled: true,
		EnabledTypes: types,
	}
}

// PreferencesPatch carries a partial update. Nil fields are left unchanged.
// An empty quiet-hours string clears that bound.
type PreferencesPatch struct {
	EmailEnabled    *bool
	PushEnabled     *bool
	InAppEnabled    *bool
	EnabledTypes    *[]NotificationType
	QuietHoursStart *string
	QuietHoursEnd   *string
}

// Empty reports whether the patch changes nothing.
func (p PreferencesPatch) Empty() bool {
	return p.EmailEnabled == nil && p.PushEnabled == nil && p.InAppEnabled == nil &&
		p.EnabledTypes == nil && p.QuietHoursStart == nil && p.QuietHoursEnd == nil
}

// Apply returns a copy of prefs with the patch applied.
func (p PreferencesPatch) Apply(prefs Preferences) Preferences {
	if p.EmailEnabled != nil {
		prefs.EmailEnabled = *p.EmailEnabled
	}
	if p.PushEnabled != nil {
		prefs.PushEnabled = *p.PushEnabled
	}
	if p.InAppEnabled != nil {
		prefs.InAppEnabled = *p.InAppEnabled
	}
	if p.EnabledTypes != nil {
		prefs.EnabledTypes = append([]NotificationType(nil), (*p.EnabledTypes)...)
	}
	if p.QuietHoursStart != nil {
		prefs.QuietHoursStart = clearable(*p.QuietHoursStart)
	}
	if p.QuietHoursEnd != nil {
		prefs.QuietHoursEnd = clearable(*p.QuietHoursEnd)
	}
	return prefs
}

func clearable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

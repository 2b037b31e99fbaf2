package policy

import (
	"github.com/google/uuid"

	"activityhub.io/notifications/internal/domain"
)

// ShouldPersist is the creation-time preference gate: the in-app record exists only when
// in-app delivery is on and the type is enabled. Email, push and quiet hours are ignored here.
// A nil record is judged against the defaults.
func ShouldPersist(prefs *domain.Preferences, t domain.NotificationType) bool {
	if prefs == nil {
		prefs = domain.DefaultPreferences(uuid.Nil)
	}
	return prefs.InAppEnabled && prefs.TypeEnabled(t)
}

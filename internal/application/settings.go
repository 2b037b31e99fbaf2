package application

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/policy"
)

// QuietHoursLayout is the accepted time-of-day format.
const QuietHoursLayout = "15:04"

// Settings returns the caller's preferences, creating the defaults on first access.
func (s *Service) Settings(ctx context.Context, p domain.Principal) (*domain.Preferences, error) {
	user, err := s.user(p, policy.OpGetSettings)
	if err != nil {
		return nil, err
	}
	prefs, err := s.settings.GetOrCreate(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return prefs, nil
}

// UpdateSettings applies a partial update; omitted fields keep their values.
func (s *Service) UpdateSettings(ctx context.Context, p domain.Principal, patch domain.PreferencesPatch) (*domain.Preferences, error) {
	user, err := s.user(p, policy.OpUpdateSettings)
	if err != nil {
		return nil, err
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	if patch.Empty() {
		return s.Settings(ctx, p)
	}

	prefs, err := s.settings.Update(ctx, user.UserID, patch)
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}

	log.Ctx(ctx).Info().
		Str("user", user.UserID.String()).
		Bool("in_app_enabled", prefs.InAppEnabled).
		Int("enabled_types", len(prefs.EnabledTypes)).
		Msg("settings updated")

	return prefs, nil
}

func validatePatch(p domain.PreferencesPatch) error {
	if p.EnabledTypes != nil {
		for _, t := range *p.EnabledTypes {
			if !t.Valid() {
				return domain.Invalidf("unknown notification type %q", t)
			}
		}
	}
	for field, v := range map[string]*string{
		"quiet_hours_start": p.QuietHoursStart,
		"quiet_hours_end":   p.QuietHoursEnd,
	} {
		if v == nil || *v == "" {
			continue
		}
		if _, err := time.Parse(QuietHoursLayout, *v); err != nil {
			return domain.Invalidf("%s must be HH:MM", field)
		}
	}
	return nil
}

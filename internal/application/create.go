package application

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/metrics"
	"activityhub.io/notifications/internal/policy"
)

// MaxTitleLength bounds notification titles, in characters.
const MaxTitleLength = 255

// SkipReasonDisabled is reported when the preference gate drops a notification.
const SkipReasonDisabled = "User has disabled this notification type"

// CreateResult is the outcome of Create. Notification is nil when the gate dropped it.
type CreateResult struct {
	Notification *domain.Notification
	Reason       string
}

// Created reports whether a record was persisted.
func (r *CreateResult) Created() bool { return r.Notification != nil }

// Create persists a notification on behalf of a trusted service, unless the recipient's
// preferences turn it away. A dropped notification is a success without a record.
func (s *Service) Create(ctx context.Context, p domain.Principal, input domain.CreateNotificationInput) (*CreateResult, error) {
	if err := policy.Authorize(p, policy.OpCreate, nil).Err(); err != nil {
		return nil, err
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	prefs, err := s.settings.GetOrCreate(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve preferences: %w", err)
	}
	if !policy.ShouldPersist(prefs, input.Type) {
		return s.dropped(ctx, input), nil
	}

	n, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	if n == nil {
		return s.dropped(ctx, input), nil
	}
	s.counts.Invalidate(ctx, n.UserID)
	metrics.NotificationsCreated.WithLabelValues(string(n.Type), "created").Inc()

	log.Ctx(ctx).Info().
		Str("id", n.ID.String()).
		Str("user", n.UserID.String()).
		Str("type", string(n.Type)).
		Msg("notification created")

	return &CreateResult{Notification: n}, nil
}

func (s *Service) dropped(ctx context.Context, input domain.CreateNotificationInput) *CreateResult {
	metrics.NotificationsCreated.WithLabelValues(string(input.Type), "skipped").Inc()
	log.Ctx(ctx).Info().
		Str("user", input.UserID.String()).
		Str("type", string(input.Type)).
		Msg("notification skipped by preferences")
	return &CreateResult{Reason: SkipReasonDisabled}
}

func validateCreate(in domain.CreateNotificationInput) error {
	if in.UserID == uuid.Nil {
		return domain.Invalidf("user_id is required")
	}
	if !in.Type.Valid() {
		return domain.Invalidf("unknown notification type %q", in.Type)
	}
	if in.Title == "" {
		return domain.Invalidf("title is required")
	}
	if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		return domain.Invalidf("title exceeds %d characters", MaxTitleLength)
	}
	if (in.TargetType == nil) != (in.TargetID == nil) {
		return domain.Invalidf("target_type and target_id must be provided together")
	}
	if in.TargetType != nil && !in.TargetType.Valid() {
		return domain.Invalidf("unknown target type %q", *in.TargetType)
	}
	return nil
}

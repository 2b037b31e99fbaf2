package handlers_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/kafka/handlers"
	"activityhub.io/notifications/internal/kafka/registry"
)

func event(t *testing.T, eventType string, payload map[string]any) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{"eventType": eventType, "eventId": "evt-1", "payload": payload})
	require.NoError(t, err)
	return b
}

func TestActivityInvite(t *testing.T) {
	recipient, actor, activity := uuid.New(), uuid.New(), uuid.New()
	in := registry.Dispatch(handlers.TopicActivity, event(t, "ACTIVITY_INVITE", map[string]any{
		"recipientId":  recipient,
		"actorId":      actor,
		"actorName":    "Dana",
		"activityId":   activity,
		"activityName": "Sunday hike",
	}))

	require.NotNil(t, in)
	require.Equal(t, recipient, in.UserID)
	require.Equal(t, actor, *in.ActorUserID)
	require.Equal(t, domain.TypeActivityInvite, in.Type)
	require.Equal(t, domain.TargetActivity, *in.TargetType)
	require.Equal(t, activity, *in.TargetID)
	require.Equal(t, "Dana invited you to join Sunday hike.", *in.Message)
	require.Equal(t, "evt-1", in.Payload["source_event_id"])
}

func TestActivityReminderHasNoActor(t *testing.T) {
	in := registry.Dispatch(handlers.TopicActivity, event(t, "ACTIVITY_REMINDER", map[string]any{
		"recipientId":  uuid.New(),
		"actorId":      uuid.New(),
		"activityId":   uuid.New(),
		"activityName": "Yoga",
		"startsIn":     "in 1 hour",
	}))
	require.NotNil(t, in)
	require.Nil(t, in.ActorUserID)
	require.Equal(t, "Yoga starts in 1 hour.", *in.Message)
}

func TestCommunityInviteHasNoTarget(t *testing.T) {
	in := registry.Dispatch(handlers.TopicCommunity, event(t, "COMMUNITY_INVITE", map[string]any{
		"recipientId":   uuid.New(),
		"actorId":       uuid.New(),
		"communityId":   uuid.New(),
		"communityName": "Runners",
	}))
	require.NotNil(t, in)
	require.Nil(t, in.TargetType)
	require.Nil(t, in.TargetID)
	require.Equal(t, "Runners", in.Payload["community_name"])
}

func TestSocialEvents(t *testing.T) {
	cases := map[string]domain.NotificationType{
		"COMMENT_CREATED": domain.TypeComment,
		"REACTION_ADDED":  domain.TypeReaction,
		"USER_MENTIONED":  domain.TypeMention,
		"PROFILE_VIEWED":  domain.TypeProfileView,
		"FAVORITE_ADDED":  domain.TypeNewFavorite,
	}
	for eventType, want := range cases {
		in := registry.Dispatch(handlers.TopicSocial, event(t, eventType, map[string]any{
			"recipientId": uuid.New(),
			"actorId":     uuid.New(),
			"actorName":   "Lee",
			"postId":      uuid.New(),
			"commentId":   uuid.New(),
			"reaction":    "like",
		}))
		require.NotNil(t, in, eventType)
		require.Equal(t, want, in.Type, eventType)
		require.NotNil(t, in.TargetType, eventType)
		require.True(t, in.TargetType.Valid(), eventType)
	}
}

func TestSelfActionsAndMissingRecipientAreSkipped(t *testing.T) {
	self := uuid.New()
	require.Nil(t, registry.Dispatch(handlers.TopicSocial, event(t, "PROFILE_VIEWED", map[string]any{
		"recipientId": self,
		"actorId":     self,
	})))
	require.Nil(t, registry.Dispatch(handlers.TopicSocial, event(t, "COMMENT_CREATED", map[string]any{
		"actorId": uuid.New(),
	})))
	require.Nil(t, registry.Dispatch(handlers.TopicSocial, event(t, "COMMENT_CREATED", map[string]any{
		"recipientId": "not-a-uuid",
	})))
}

func TestDirectCommand(t *testing.T) {
	user := uuid.New()
	raw, err := json.Marshal(map[string]any{
		"commandId": "cmd-9",
		"userId":    user,
		"type":      "maintenance_window",
		"title":     "Scheduled maintenance",
		"payload":   map[string]any{"window": "02:00-03:00"},
	})
	require.NoError(t, err)

	in, ok := registry.DispatchDirect(handlers.TopicCommands, raw)
	require.True(t, ok)
	require.NotNil(t, in)
	require.Equal(t, user, in.UserID)
	require.Equal(t, domain.TypeSystem, in.Type)
	require.Nil(t, in.Message)
	require.Equal(t, "cmd-9", in.Payload["source_event_id"])
	require.Equal(t, "02:00-03:00", in.Payload["window"])

	in, ok = registry.DispatchDirect(handlers.TopicCommands, []byte(`{"title":"no user"}`))
	require.True(t, ok)
	require.Nil(t, in)
}

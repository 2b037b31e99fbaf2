package handlers

import (
	"github.com/google/uuid"

	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/messages"
)

func init() {
	Register(TopicActivity, "ACTIVITY_INVITE", handleActivityInvite)
	Register(TopicActivity, "ACTIVITY_REMINDER", handleActivityReminder)
	Register(TopicActivity, "ACTIVITY_UPDATED", handleActivityUpdated)
}

type activityPayload struct {
	actorPayload
	ActivityID   uuid.UUID `json:"activityId"`
	ActivityName string    `json:"activityName"`
	StartsIn     string    `json:"startsIn"`
	Change       string    `json:"change"`
}

func handleActivityInvite(data []byte) *domain.CreateNotificationInput {
	env, ok := parse[activityPayload](data)
	if !ok {
		return nil
	}
	p := env.Payload
	title, body := messages.ActivityInvite(p.ActorName, p.ActivityName)
	return build(env.EventID, p.RecipientID, p.ActorID, domain.TypeActivityInvite, title, body,
		targetOf(domain.TargetActivity), &p.ActivityID, map[string]any{"activity_name": p.ActivityName})
}

func handleActivityReminder(data []byte) *domain.CreateNotificationInput {
	env, ok := parse[activityPayload](data)
	if !ok {
		return nil
	}
	p := env.Payload
	title, body := messages.ActivityReminder(p.ActivityName, p.StartsIn)
	// Reminders are sent by the scheduler, never by a user.
	return build(env.EventID, p.RecipientID, nil, domain.TypeActivityReminder, title, body,
		targetOf(domain.TargetActivity), &p.ActivityID, map[string]any{"activity_name": p.ActivityName})
}

func handleActivityUpdated(data []byte) *domain.CreateNotificationInput {
	env, ok := parse[activityPayload](data)
	if !ok {
		return nil
	}
	p := env.Payload
	title, body := messages.ActivityUpdated(p.ActivityName, p.Change)
	return build(env.EventID, p.RecipientID, p.ActorID, domain.TypeActivityUpdate, title, body,
		targetOf(domain.TargetActivity), &p.ActivityID, map[string]any{"activity_name": p.ActivityName, "change": p.Change})
}

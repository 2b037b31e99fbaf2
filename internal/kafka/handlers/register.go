package handlers

import (
	"encoding/json"

	"github.com/google/uuid"

	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/kafka/registry"
)

// Topics consumed by this package.
const (
	TopicActivity  = "activity-events"
	TopicCommunity = "community-events"
	TopicSocial    = "social-events"
	TopicCommands  = "notification-commands"
)

// Register is a convenience alias so each domain file calls Register(...)
// instead of registry.Register(...), keeping imports minimal.
func Register(topic, eventType string, h registry.EventHandler) {
	registry.Register(topic, eventType, h)
}

// RegisterDirect registers a handler for topics that don't use eventType routing.
func RegisterDirect(topic string, h registry.EventHandler) {
	registry.Register(topic, "", h)
}

// envelope is the common wrapper platform services put around every event.
type envelope[P any] struct {
	EventType string `json:"eventType"`
	EventID   string `json:"eventId"`
	Payload   P      `json:"payload"`
}

// actorPayload carries the fields every user-to-user event shares.
type actorPayload struct {
	RecipientID uuid.UUID  `json:"recipientId"`
	ActorID     *uuid.UUID `json:"actorId"`
	ActorName   string     `json:"actorName"`
}

// parse decodes an envelope; events without a recipient, or where the actor is the
// recipient, are skipped.
func parse[P interface{ recipient() (uuid.UUID, *uuid.UUID) }](data []byte) (*envelope[P], bool) {
	var env envelope[P]
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	to, from := env.Payload.recipient()
	if to == uuid.Nil || (from != nil && *from == to) {
		return nil, false
	}
	return &env, true
}

func (p actorPayload) recipient() (uuid.UUID, *uuid.UUID) { return p.RecipientID, p.ActorID }

// build assembles the creation input, tagging the payload with the source event id.
func build(eventID string, to uuid.UUID, actor *uuid.UUID, t domain.NotificationType, title, body string, target *domain.TargetType, targetID *uuid.UUID, payload map[string]any) *domain.CreateNotificationInput {
	if payload == nil {
		payload = map[string]any{}
	}
	if eventID != "" {
		payload["source_event_id"] = eventID
	}
	if target == nil || targetID == nil || *targetID == uuid.Nil {
		target, targetID = nil, nil
	}
	return &domain.CreateNotificationInput{
		UserID:      to,
		ActorUserID: actor,
		Type:        t,
		TargetType:  target,
		TargetID:    targetID,
		Title:       title,
		Message:     &body,
		Payload:     payload,
	}
}

func targetOf(t domain.TargetType) *domain.TargetType { return &t }

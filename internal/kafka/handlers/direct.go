package handlers

import (
	"encoding/json"

	"github.com/google/uuid"

	"activityhub.io/notifications/internal/domain"
)

func init() {
	RegisterDirect(TopicCommands, handleDirectCommand)
}

// handleDirectCommand accepts a fully-formed notification from another service. Unknown
// types fall back to system; the application service validates the rest.
func handleDirectCommand(data []byte) *domain.CreateNotificationInput {
	var cmd struct {
		CommandID   string         `json:"commandId"`
		UserID      uuid.UUID      `json:"userId"`
		ActorUserID *uuid.UUID     `json:"actorUserId"`
		Type        string         `json:"type"`
		TargetType  string         `json:"targetType"`
		TargetID    *uuid.UUID     `json:"targetId"`
		Title       string         `json:"title"`
		Message     string         `json:"message"`
		Payload     map[string]any `json:"payload"`
	}

	if err := json.Unmarshal(data, &cmd); err != nil || cmd.UserID == uuid.Nil {
		return nil
	}

	notifType := domain.NotificationType(cmd.Type)
	if !notifType.Valid() {
		notifType = domain.TypeSystem
	}

	var target *domain.TargetType
	if cmd.TargetType != "" {
		target = targetOf(domain.TargetType(cmd.TargetType))
	}

	in := build(cmd.CommandID, cmd.UserID, cmd.ActorUserID, notifType, cmd.Title, cmd.Message, target, cmd.TargetID, cmd.Payload)
	if cmd.Message == "" {
		in.Message = nil
	}
	return in
}

package handlers

import (
	"github.com/google/uuid"

	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/messages"
)

func init() {
	Register(TopicSocial, "COMMENT_CREATED", handleCommentCreated)
	Register(TopicSocial, "REACTION_ADDED", handleReactionAdded)
	Register(TopicSocial, "USER_MENTIONED", handleUserMentioned)
	Register(TopicSocial, "PROFILE_VIEWED", handleProfileViewed)
	Register(TopicSocial, "FAVORITE_ADDED", handleFavoriteAdded)
}

type socialPayload struct {
	actorPayload
	PostID    uuid.UUID `json:"postId"`
	CommentID uuid.UUID `json:"commentId"`
	Reaction  string    `json:"reaction"`
}

func handleCommentCreated(data []byte) *domain.CreateNotificationInput {
	env, ok := parse[socialPayload](data)
	if !ok {
		return nil
	}
	p := env.Payload
	title, body := messages.Comment(p.ActorName)
	return build(env.EventID, p.RecipientID, p.ActorID, domain.TypeComment, title, body,
		targetOf(domain.TargetComment), &p.CommentID, map[string]any{"post_id": p.PostID.String()})
}

func handleReactionAdded(data []byte) *domain.CreateNotificationInput {
	env, ok := parse[socialPayload](data)
	if !ok {
		return nil
	}
	p := env.Payload
	title, body := messages.Reaction(p.ActorName, p.Reaction)
	return build(env.EventID, p.RecipientID, p.ActorID, domain.TypeReaction, title, body,
		targetOf(domain.TargetPost), &p.PostID, map[string]any{"reaction": p.Reaction})
}

func handleUserMentioned(data []byte) *domain.CreateNotificationInput {
	env, ok := parse[socialPayload](data)
	if !ok {
		return nil
	}
	p := env.Payload
	title, body := messages.Mention(p.ActorName)
	return build(env.EventID, p.RecipientID, p.ActorID, domain.TypeMention, title, body,
		targetOf(domain.TargetComment), &p.CommentID, nil)
}

// Profile views and favorites are premium-exclusive; the visibility filter hides them from
// free subscribers at read time, so they are stored regardless of the recipient's tier.
func handleProfileViewed(data []byte) *domain.CreateNotificationInput {
	env, ok := parse[socialPayload](data)
	if !ok {
		return nil
	}
	p := env.Payload
	title, body := messages.ProfileView(p.ActorName)
	return build(env.EventID, p.RecipientID, p.ActorID, domain.TypeProfileView, title, body,
		targetOf(domain.TargetUser), p.ActorID, nil)
}

func handleFavoriteAdded(data []byte) *domain.CreateNotificationInput {
	env, ok := parse[socialPayload](data)
	if !ok {
		return nil
	}
	p := env.Payload
	title, body := messages.NewFavorite(p.ActorName)
	return build(env.EventID, p.RecipientID, p.ActorID, domain.TypeNewFavorite, title, body,
		targetOf(domain.TargetUser), p.ActorID, nil)
}

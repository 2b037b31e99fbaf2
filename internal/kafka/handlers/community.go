package handlers

import (
	"github.com/google/uuid"

	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/messages"
)

func init() {
	Register(TopicCommunity, "COMMUNITY_INVITE", handleCommunityInvite)
	Register(TopicCommunity, "MEMBER_JOINED", handleMemberJoined)
	Register(TopicCommunity, "POST_CREATED", handlePostCreated)
}

type communityPayload struct {
	actorPayload
	CommunityID   uuid.UUID `json:"communityId"`
	CommunityName string    `json:"communityName"`
	PostID        uuid.UUID `json:"postId"`
}

func (p communityPayload) extra() map[string]any {
	return map[string]any{"community_id": p.CommunityID.String(), "community_name": p.CommunityName}
}

// Communities are not a target type; the community travels in the payload.
func handleCommunityInvite(data []byte) *domain.CreateNotificationInput {
	env, ok := parse[communityPayload](data)
	if !ok {
		return nil
	}
	p := env.Payload
	title, body := messages.CommunityInvite(p.ActorName, p.CommunityName)
	return build(env.EventID, p.RecipientID, p.ActorID, domain.TypeCommunityInvite, title, body, nil, nil, p.extra())
}

func handleMemberJoined(data []byte) *domain.CreateNotificationInput {
	env, ok := parse[communityPayload](data)
	if !ok {
		return nil
	}
	p := env.Payload
	title, body := messages.NewMember(p.ActorName, p.CommunityName)
	return build(env.EventID, p.RecipientID, p.ActorID, domain.TypeNewMember, title, body,
		targetOf(domain.TargetUser), p.ActorID, p.extra())
}

func handlePostCreated(data []byte) *domain.CreateNotificationInput {
	env, ok := parse[communityPayload](data)
	if !ok {
		return nil
	}
	p := env.Payload
	title, body := messages.NewPost(p.ActorName, p.CommunityName)
	return build(env.EventID, p.RecipientID, p.ActorID, domain.TypeNewPost, title, body,
		targetOf(domain.TargetPost), &p.PostID, p.extra())
}

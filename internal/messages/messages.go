// Package messages builds the English title and message of event-driven notifications.
package messages

import "fmt"

// ─── Activity builders ───────────────────────────────────────────────────────

func ActivityInvite(actorName, activityName string) (string, string) {
	return ActivityInviteTitle, fmt.Sprintf(ActivityInviteBody, actor(actorName), activityName)
}

// ActivityReminder takes a human-readable start, e.g. "in 1 hour".
func ActivityReminder(activityName, startsIn string) (string, string) {
	return ActivityReminderTitle, fmt.Sprintf(ActivityReminderBody, activityName, startsIn)
}

func ActivityUpdated(activityName, change string) (string, string) {
	if change == "" {
		change = "details changed"
	}
	return ActivityUpdatedTitle, fmt.Sprintf(ActivityUpdatedBody, activityName, change)
}

// ─── Community builders ──────────────────────────────────────────────────────

func CommunityInvite(actorName, communityName string) (string, string) {
	return CommunityInviteTitle, fmt.Sprintf(CommunityInviteBody, actor(actorName), communityName)
}

func NewMember(actorName, communityName string) (string, string) {
	return NewMemberTitle, fmt.Sprintf(NewMemberBody, actor(actorName), communityName)
}

func NewPost(actorName, communityName string) (string, string) {
	return NewPostTitle, fmt.Sprintf(NewPostBody, actor(actorName), communityName)
}

// ─── Social builders ─────────────────────────────────────────────────────────

func Comment(actorName string) (string, string) {
	return CommentTitle, fmt.Sprintf(CommentBody, actor(actorName))
}

func Reaction(actorName, reaction string) (string, string) {
	return ReactionTitle, fmt.Sprintf(ReactionBody, actor(actorName), reaction)
}

func Mention(actorName string) (string, string) {
	return MentionTitle, fmt.Sprintf(MentionBody, actor(actorName))
}

func ProfileView(actorName string) (string, string) {
	return ProfileViewTitle, fmt.Sprintf(ProfileViewBody, actor(actorName))
}

func NewFavorite(actorName string) (string, string) {
	return NewFavoriteTitle, fmt.Sprintf(NewFavoriteBody, actor(actorName))
}

func actor(name string) string {
	if name == "" {
		return someone
	}
	return name
}

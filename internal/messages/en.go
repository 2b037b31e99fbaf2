package messages

// ─── Activities ──────────────────────────────────────────────────────────────

const (
	ActivityInviteTitle = "You're invited"
	ActivityInviteBody  = "%s invited you to join %s."

	ActivityReminderTitle = "Upcoming activity"
	ActivityReminderBody  = "%s starts %s."

	ActivityUpdatedTitle = "Activity updated"
	ActivityUpdatedBody  = "%s has been updated: %s."
)

// ─── Communities ─────────────────────────────────────────────────────────────

const (
	CommunityInviteTitle = "Community invitation"
	CommunityInviteBody  = "%s invited you to join the community %s."

	NewMemberTitle = "New member"
	NewMemberBody  = "%s joined %s."

	NewPostTitle = "New post"
	NewPostBody  = "%s posted in %s."
)

// ─── Social ──────────────────────────────────────────────────────────────────

const (
	CommentTitle = "New comment"
	CommentBody  = "%s commented on your post."

	ReactionTitle = "New reaction"
	ReactionBody  = "%s reacted %s to your post."

	MentionTitle = "You were mentioned"
	MentionBody  = "%s mentioned you in a comment."

	ProfileViewTitle = "Someone viewed your profile"
	ProfileViewBody  = "%s viewed your profile."

	NewFavoriteTitle = "New favorite"
	NewFavoriteBody  = "%s added you to their favorites."
)

// someone stands in for a missing actor name.
const someone = "Someone"

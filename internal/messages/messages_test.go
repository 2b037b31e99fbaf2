package messages_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"activityhub.io/notifications/internal/messages"
)

func TestBuilders(t *testing.T) {
	title, body := messages.ActivityInvite("Dana", "Sunday hike")
	require.Equal(t, messages.ActivityInviteTitle, title)
	require.Equal(t, "Dana invited you to join Sunday hike.", body)

	_, body = messages.ActivityUpdated("Sunday hike", "")
	require.Equal(t, "Sunday hike has been updated: details changed.", body)

	_, body = messages.Reaction("Lee", "👍")
	require.Equal(t, "Lee reacted 👍 to your post.", body)
}

func TestMissingActorName(t *testing.T) {
	_, body := messages.ProfileView("")
	require.Equal(t, "Someone viewed your profile.", body)
}

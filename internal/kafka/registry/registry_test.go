package registry_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/kafka/registry"
)

func makeJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func TestRegisterAndDispatch(t *testing.T) {
	called := false
	registry.Register("test-topic", "TEST_EVENT", func(data []byte) *domain.CreateNotificationInput {
		called = true
		return &domain.CreateNotificationInput{Title: "test"}
	})

	result := registry.Dispatch("test-topic", makeJSON(map[string]string{
		"eventType": "TEST_EVENT",
	}))

	require.True(t, called, "handler was not called")
	require.NotNil(t, result)
	require.Equal(t, "test", result.Title)
	require.Contains(t, registry.Keys(), "test-topic:TEST_EVENT")
}

func TestDispatch_UnknownEvent_ReturnsNil(t *testing.T) {
	result := registry.Dispatch("test-topic", makeJSON(map[string]string{
		"eventType": "UNKNOWN_EVENT_XYZ",
	}))
	require.Nil(t, result)
}

func TestDispatch_InvalidJSON_ReturnsNil(t *testing.T) {
	require.Nil(t, registry.Dispatch("test-topic", []byte("not json")))
}

func TestDispatchDirect(t *testing.T) {
	registry.Register("direct-topic", "", func(data []byte) *domain.CreateNotificationInput {
		return &domain.CreateNotificationInput{Title: "direct"}
	})

	result, ok := registry.DispatchDirect("direct-topic", []byte(`{}`))
	require.True(t, ok)
	require.Equal(t, "direct", result.Title)

	_, ok = registry.DispatchDirect("test-topic", []byte(`{}`))
	require.False(t, ok)
}

func TestRegister_DuplicatePanics(t *testing.T) {
	noop := func(_ []byte) *domain.CreateNotificationInput { return nil }
	registry.Register("dupe-topic", "DUPE_EVENT", noop)
	require.Panics(t, func() { registry.Register("dupe-topic", "DUPE_EVENT", noop) })
}

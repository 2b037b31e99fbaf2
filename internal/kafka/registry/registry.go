// Package registry provides a lightweight event handler registry for Kafka events.
// Each domain handler registers itself via init(), so the consumer never changes
// when a new event is supported.
package registry

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"activityhub.io/notifications/internal/domain"
)

// EventHandler maps raw Kafka message bytes to a notification to create.
// Returning nil means "skip this event".
type EventHandler func(data []byte) *domain.CreateNotificationInput

var (
	mu       sync.RWMutex
	handlers = map[string]EventHandler{}
)

// Register binds a handler to a {topic}:{eventType} key.
// Should be called from each domain handler's init() function.
// Panics on duplicate registration to catch config mistakes early.
func Register(topic, eventType string, h EventHandler) {
	mu.Lock()
	defer mu.Unlock()
	key := topic + ":" + eventType
	if _, exists := handlers[key]; exists {
		panic("registry: duplicate handler registered for key: " + key)
	}
	handlers[key] = h
}

// Dispatch looks up and calls the handler for the given topic + eventType.
// The eventType is extracted from the "eventType" JSON field in data.
// Returns nil if no handler found or data cannot be parsed.
func Dispatch(topic string, data []byte) *domain.CreateNotificationInput {
	var probe struct {
		EventType string `json:"eventType"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		log.Warn().Str("topic", topic).Err(err).Msg("registry: failed to probe eventType")
		return nil
	}

	key := topic + ":" + probe.EventType
	h, ok := lookup(key)
	if !ok {
		log.Debug().Str("key", key).Msg("registry: no handler registered")
		return nil
	}
	return h(data)
}

// DispatchDirect calls the handler registered for a topic without eventType routing.
// Used for notification-commands, where the entire message is the command.
func DispatchDirect(topic string, data []byte) (*domain.CreateNotificationInput, bool) {
	h, ok := lookup(topic + ":")
	if !ok {
		return nil, false
	}
	return h(data), true
}

// Keys lists every registered key; used by startup logging and tests.
func Keys() []string {
	mu.RLock()
	defer mu.RUnlock()
	keys := make([]string, 0, len(handlers))
	for k := range handlers {
		keys = append(keys, k)
	}
	return keys
}

func lookup(key string) (EventHandler, bool) {
	mu.RLock()
	defer mu.RUnlock()
	h, ok := handlers[key]
	return h, ok
}

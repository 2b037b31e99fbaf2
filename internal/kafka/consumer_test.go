package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"activityhub.io/notifications/internal/application"
	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/infrastructure/memory"
)

type failingCreator struct{}

func (failingCreator) Create(context.Context, domain.Principal, domain.CreateNotificationInput) (*application.CreateResult, error) {
	return nil, errors.New("storage down")
}

func record(t *testing.T, topic string, v any) *kgo.Record {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return &kgo.Record{Topic: topic, Value: b}
}

func TestProcessCreatesThroughService(t *testing.T) {
	store := memory.New()
	svc := application.NewService(store, store)
	recipient := uuid.New()

	out := process(context.Background(), svc, record(t, "social-events", map[string]any{
		"eventType": "USER_MENTIONED",
		"eventId":   "evt-42",
		"payload": map[string]any{
			"recipientId": recipient,
			"actorId":     uuid.New(),
			"actorName":   "Lee",
			"commentId":   uuid.New(),
		},
	}))
	require.Equal(t, "created", out)

	page, err := svc.List(context.Background(), domain.UserPrincipal{UserID: recipient}, application.ListRequest{})
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	require.Equal(t, domain.TypeMention, page.Notifications[0].Type)
}

func TestProcessRespectsPreferences(t *testing.T) {
	store := memory.New()
	svc := application.NewService(store, store)
	recipient := uuid.New()

	off := false
	_, err := svc.UpdateSettings(context.Background(), domain.UserPrincipal{UserID: recipient}, domain.PreferencesPatch{InAppEnabled: &off})
	require.NoError(t, err)

	out := process(context.Background(), svc, record(t, "notification-commands", map[string]any{
		"userId": recipient,
		"type":   "system",
		"title":  "Scheduled maintenance",
	}))
	require.Equal(t, "skipped", out)
}

func TestProcessOutcomes(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, "ignored", process(ctx, failingCreator{}, record(t, "social-events", map[string]any{"eventType": "UNKNOWN"})))
	require.Equal(t, "ignored", process(ctx, failingCreator{}, &kgo.Record{Topic: "social-events", Value: []byte("garbage")}))
	require.Equal(t, "failed", process(ctx, failingCreator{}, record(t, "notification-commands", map[string]any{
		"userId": uuid.New(),
		"title":  "x",
	})))
}

// flakyCreator reports storage as unavailable for one recipient and succeeds for the rest.
type flakyCreator struct {
	down  uuid.UUID
	calls int
}

func (f *flakyCreator) Create(_ context.Context, _ domain.Principal, in domain.CreateNotificationInput) (*application.CreateResult, error) {
	f.calls++
	if in.UserID == f.down {
		return nil, fmt.Errorf("create notification: %w", domain.Unavailable(errors.New("pool exhausted")))
	}
	return &application.CreateResult{Notification: &domain.Notification{ID: uuid.New(), UserID: in.UserID}}, nil
}

func command(t *testing.T, partition int32, offset int64, to uuid.UUID) *kgo.Record {
	t.Helper()
	r := record(t, "notification-commands", map[string]any{"userId": to, "type": "system", "title": "x"})
	r.Partition, r.Offset, r.LeaderEpoch = partition, offset, 3
	return r
}

func TestDrainStopsAtUnavailableStorage(t *testing.T) {
	down := uuid.New()
	svc := &flakyCreator{down: down}

	ok1 := command(t, 0, 10, uuid.New())
	fail := command(t, 0, 11, down)
	other := command(t, 1, 4, uuid.New())
	later := command(t, 0, 12, uuid.New())

	done, rewind := drain(context.Background(), svc, []*kgo.Record{ok1, fail, other, later})
	require.Equal(t, []*kgo.Record{ok1}, done)
	require.Equal(t, map[string]map[int32]kgo.EpochOffset{
		"notification-commands": {
			0: {Epoch: 3, Offset: 11},
			1: {Epoch: 3, Offset: 4},
		},
	}, rewind)
	require.Equal(t, 2, svc.calls)
}

func TestDrainCommitsPermanentFailures(t *testing.T) {
	records := []*kgo.Record{
		command(t, 0, 1, uuid.New()),
		{Topic: "social-events", Value: []byte("garbage")},
	}
	done, rewind := drain(context.Background(), failingCreator{}, records)
	require.Nil(t, rewind)
	require.Equal(t, records, done)
}

func TestProcessMarksUnavailableForRetry(t *testing.T) {
	down := uuid.New()
	require.Equal(t, "retry", process(context.Background(), &flakyCreator{down: down}, command(t, 0, 0, down)))
}

package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"

	"activityhub.io/notifications/internal/application"
	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/kafka/registry"
	"activityhub.io/notifications/internal/metrics"

	// Blank imports trigger init() in each handler file,
	// registering all event handlers into the registry.
	_ "activityhub.io/notifications/internal/kafka/handlers"
)

// Outcomes of a processed record, as recorded in metrics.
const (
	outcomeIgnored = "ignored"
	outcomeCreated = "created"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
	outcomeRetry   = "retry"
)

// retryBackoff is how long consumption pauses after storage reported itself unavailable.
const retryBackoff = 5 * time.Second

// Principal is the identity event-driven creations run under. It goes through the same
// access policy and preference gate as the HTTP create endpoint.
var Principal = domain.ServicePrincipal{Name: "kafka", Trusted: true}

// Creator is the part of application.Service the consumer drives.
type Creator interface {
	Create(ctx context.Context, p domain.Principal, input domain.CreateNotificationInput) (*application.CreateResult, error)
}

// Consumer wraps the franz-go Kafka client.
type Consumer struct {
	client  *kgo.Client
	service Creator
}

// New creates a Consumer with the given brokers, group ID, and topics.
func New(brokers []string, groupID string, topics []string, svc Creator) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, err
	}
	return &Consumer{client: client, service: svc}, nil
}

// Start begins polling Kafka and processing records. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	log.Info().Strs("handlers", registry.Keys()).Msg("kafka consumer started")

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			break
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			log.Error().Err(err).Str("topic", topic).Int32("partition", partition).Msg("kafka fetch error")
		})

		done, rewind := drain(ctx, c.service, fetches.Records())
		if len(done) > 0 {
			if err := c.client.CommitRecords(ctx, done...); err != nil {
				log.Error().Err(err).Msg("kafka commit error")
			}
		}
		if rewind != nil {
			// Storage is unavailable: replay the unprocessed records after a pause.
			c.client.SetOffsets(rewind)
			log.Warn().Dur("backoff", retryBackoff).Msg("notification storage unavailable, pausing consumption")
			select {
			case <-ctx.Done():
			case <-time.After(retryBackoff):
			}
		}
	}

	c.client.Close()
	log.Info().Msg("kafka consumer stopped")
}

// drain processes records in order until one fails with a retryable error. It returns
// the records that are finished, and for every partition with unprocessed records the
// offset to resume from. rewind is nil when the whole batch was handled.
func drain(ctx context.Context, svc Creator, records []*kgo.Record) (done []*kgo.Record, rewind map[string]map[int32]kgo.EpochOffset) {
	for _, r := range records {
		if rewind == nil {
			if process(ctx, svc, r) != outcomeRetry {
				done = append(done, r)
				continue
			}
			rewind = map[string]map[int32]kgo.EpochOffset{}
		}
		parts, ok := rewind[r.Topic]
		if !ok {
			parts = map[int32]kgo.EpochOffset{}
			rewind[r.Topic] = parts
		}
		if _, seen := parts[r.Partition]; !seen {
			parts[r.Partition] = kgo.EpochOffset{Epoch: r.LeaderEpoch, Offset: r.Offset}
		}
	}
	return done, rewind
}

// process dispatches a record to its registered handler and creates the resulting
// notification. It returns the outcome recorded in metrics.
func process(ctx context.Context, svc Creator, r *kgo.Record) string {
	log.Debug().
		Str("topic", r.Topic).
		Str("key", string(r.Key)).
		Msg("processing kafka record")

	// notification-commands doesn't use eventType routing
	input, direct := registry.DispatchDirect(r.Topic, r.Value)
	if !direct {
		input = registry.Dispatch(r.Topic, r.Value)
	}

	outcome := outcomeIgnored
	defer func() { metrics.EventsConsumed.WithLabelValues(r.Topic, outcome).Inc() }()

	if input == nil {
		log.Debug().Str("topic", r.Topic).Msg("no handler matched, skipping")
		return outcome
	}

	res, err := svc.Create(ctx, Principal, *input)
	switch {
	case errors.Is(err, domain.ErrUnavailable):
		outcome = outcomeRetry
		log.Warn().Err(err).
			Str("topic", r.Topic).
			Int64("offset", r.Offset).
			Msg("notification storage unavailable, event will be retried")
	case err != nil:
		outcome = outcomeFailed
		log.Error().Err(err).
			Str("topic", r.Topic).
			Str("user", input.UserID.String()).
			Str("type", string(input.Type)).
			Msg("failed to create notification from kafka event")
	case res.Created():
		outcome = outcomeCreated
	default:
		outcome = outcomeSkipped
	}
	return outcome
}

// Package redis caches unread-count breakdowns in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"activityhub.io/notifications/internal/domain"
)

const keyPrefix = "notifications:unread:"

// minGenerationTTL is the floor for how long a generation counter outlives its last
// invalidation. It is always kept longer than the count TTL.
const minGenerationTTL = 24 * time.Hour

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient opens a client and verifies the server answers.
func NewClient(ctx context.Context, opts Options) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// CountCache implements application.CountCache. Every Redis failure is logged and
// reported as a miss; Postgres stays the source of truth.
//
// Each user has a generation counter next to the cached tiers. Invalidate increments it,
// and Set writes under WATCH only while the counter still holds the value Get returned.
type CountCache struct {
	client goredis.UniversalClient
	ttl    time.Duration
	genTTL time.Duration
}

// errStale aborts a Set whose generation was superseded by an invalidation.
var errStale = errors.New("unread count generation changed")

// NewCountCache creates a cache whose entries expire after ttl.
func NewCountCache(client goredis.UniversalClient, ttl time.Duration) *CountCache {
	return &CountCache{client: client, ttl: ttl, genTTL: max(minGenerationTTL, 2*ttl)}
}

func (c *CountCache) Get(ctx context.Context, userID uuid.UUID, includePremium bool) (*domain.UnreadCount, int64, bool) {
	vals, err := c.client.MGet(ctx, key(userID, includePremium), genKey(userID)).Result()
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("user", userID.String()).Msg("unread cache read failed")
		return nil, -1, false
	}

	gen, err := generation(vals[1])
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("user", userID.String()).Msg("unread cache generation corrupt")
		return nil, -1, false
	}

	raw, ok := vals[0].(string)
	if !ok {
		return nil, gen, false
	}
	var out domain.UnreadCount
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("user", userID.String()).Msg("unread cache entry corrupt")
		return nil, gen, false
	}
	return &out, gen, true
}

func (c *CountCache) Set(ctx context.Context, userID uuid.UUID, includePremium bool, gen int64, count *domain.UnreadCount) {
	if gen < 0 {
		return
	}
	raw, err := json.Marshal(count)
	if err != nil {
		return
	}

	gk := genKey(userID)
	err = c.client.Watch(ctx, func(tx *goredis.Tx) error {
		cur, err := tx.Get(ctx, gk).Result()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		now, err := generation(nilIfEmpty(cur))
		if err != nil {
			return err
		}
		if now != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, key(userID, includePremium), raw, c.ttl)
			return nil
		})
		return err
	}, gk)

	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, goredis.TxFailedErr):
		log.Ctx(ctx).Debug().Str("user", userID.String()).Msg("unread count superseded, not cached")
	default:
		log.Ctx(ctx).Warn().Err(err).Str("user", userID.String()).Msg("unread cache write failed")
	}
}

// Invalidate advances the user's generation and drops both visibility tiers.
func (c *CountCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	gk := genKey(userID)
	_, err := c.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Incr(ctx, gk)
		p.Expire(ctx, gk, c.genTTL)
		p.Del(ctx, key(userID, true), key(userID, false))
		return nil
	})
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("user", userID.String()).Msg("unread cache invalidation failed")
	}
}

// Ping reports whether Redis is reachable; used by the health check.
func (c *CountCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func key(userID uuid.UUID, includePremium bool) string {
	tier := "standard"
	if includePremium {
		tier = "premium"
	}
	return keyPrefix + userID.String() + ":" + tier
}

func genKey(userID uuid.UUID) string {
	return keyPrefix + userID.String() + ":gen"
}

// generation parses a counter read with GET or MGET; a missing counter is generation 0.
func generation(v any) (int64, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected generation value %T", v)
	}
	return strconv.ParseInt(s, 10, 64)
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

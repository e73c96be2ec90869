package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// LevelStore remembers the last SLA level announced for each ticket.
type LevelStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewLevelStore builds a store writing keys as prefix+ticketID.
func NewLevelStore(client redis.Cmdable, prefix string, ttl time.Duration) *LevelStore {
	if prefix == "" {
		prefix = "sla:level:"
	}
	return &LevelStore{client: client, prefix: prefix, ttl: ttl}
}

// Last returns the stored level, or "" when none was recorded.
func (s *LevelStore) Last(ctx context.Context, ticketID string) (string, error) {
	level, err := s.client.Get(ctx, s.prefix+ticketID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return level, err
}

// Remember records level as the latest announced for the ticket.
func (s *LevelStore) Remember(ctx context.Context, ticketID, level string) error {
	return s.client.Set(ctx, s.prefix+ticketID, level, s.ttl).Err()
}

// Forget removes the ticket's record. The sweeper calls it for tickets found
// terminal while evaluating; records of tickets resolved between sweeps
// expire with the TTL.
func (s *LevelStore) Forget(ctx context.Context, ticketID string) error {
	return s.client.Del(ctx, s.prefix+ticketID).Err()
}

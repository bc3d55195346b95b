package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTypingWindow is how long a typing signal stays active after the last
// ping before it expires on its own.
const DefaultTypingWindow = 3 * time.Second

// TypingStore tracks the short-lived "is typing" signal per conversation and
// user. Signals are expected at keystroke frequency and expire by staleness,
// never by explicit deletion.
type TypingStore interface {
	Ping(ctx context.Context, conversationID, userID uint) error
	// ActiveTyper returns the candidate with the freshest signal inside the
	// window. Ties on timestamp resolve to the lowest user id so repeated
	// polls surface a stable representative.
	ActiveTyper(ctx context.Context, conversationID uint, candidateIDs []uint) (uint, bool, error)
}

type redisTypingStore struct {
	client *redis.Client
	window time.Duration
	now    func() time.Time
}

// NewTypingStore constructs a Redis-backed typing store. A non-positive
// window falls back to DefaultTypingWindow.
func NewTypingStore(client *redis.Client, window time.Duration) TypingStore {
	if window <= 0 {
		window = DefaultTypingWindow
	}
	return &redisTypingStore{
		client: client,
		window: window,
		now:    time.Now,
	}
}

func typingKey(conversationID, userID uint) string {
	return fmt.Sprintf("typing:%d:%d", conversationID, userID)
}

func (s *redisTypingStore) Ping(ctx context.Context, conversationID, userID uint) error {
	timestamp := strconv.FormatInt(s.now().UnixNano(), 10)
	return s.client.Set(ctx, typingKey(conversationID, userID), timestamp, s.window).Err()
}

func (s *redisTypingStore) ActiveTyper(ctx context.Context, conversationID uint, candidateIDs []uint) (uint, bool, error) {
	if len(candidateIDs) == 0 {
		return 0, false, nil
	}

	keys := make([]string, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		keys = append(keys, typingKey(conversationID, id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return 0, false, err
	}

	var (
		bestID uint
		bestTS int64
		found  bool
	)
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		candidate := candidateIDs[i]
		if !found || ts > bestTS || (ts == bestTS && candidate < bestID) {
			bestID = candidate
			bestTS = ts
			found = true
		}
	}

	return bestID, found, nil
}

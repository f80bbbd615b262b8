package journal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// redisKey returns the Redis key for a room's event list.
func redisKey(roomID string) string {
	return "room:" + roomID + ":events"
}

// RedisStore persists events in Redis using a list per room.
type RedisStore struct {
	client  redis.Cmdable
	maxSize int64
}

// NewRedisStore creates a RedisStore that retains up to maxSize events per room.
func NewRedisStore(client redis.Cmdable, maxSize int) *RedisStore {
	return &RedisStore{
		client:  client,
		maxSize: int64(maxSize),
	}
}

// Append adds an event to the room's list in Redis, trimming to maxSize.
func (s *RedisStore) Append(ev *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("journal: failed to marshal event")
		return
	}

	key := redisKey(ev.RoomID)
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -s.maxSize, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("room", ev.RoomID).Msg("journal: failed to append event")
	}
}

// Recent returns the last n events for a room, oldest first.
func (s *RedisStore) Recent(roomID string, n int) []*Event {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	vals, err := s.client.LRange(ctx, redisKey(roomID), int64(-n), -1).Result()
	if err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("journal: failed to read events")
		return nil
	}

	evs := make([]*Event, 0, len(vals))
	for _, v := range vals {
		var ev Event
		if err := json.Unmarshal([]byte(v), &ev); err != nil {
			continue
		}
		evs = append(evs, &ev)
	}
	return evs
}

// Count returns the number of stored events for a room.
func (s *RedisStore) Count(roomID string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := s.client.LLen(ctx, redisKey(roomID)).Result()
	if err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("journal: failed to count events")
		return 0
	}
	return int(n)
}

// DeleteRoom removes all stored events for a room.
func (s *RedisStore) DeleteRoom(roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.client.Del(ctx, redisKey(roomID)).Err(); err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("journal: failed to delete events")
	}
}

package journal

import (
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T, maxSize int) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(client, maxSize)
}

func TestRedisStoreAppendAndCount(t *testing.T) {
	s := newTestRedisStore(t, 100)

	s.Append(pageEvent("room1", "/film/1"))
	s.Append(&Event{RoomID: "room1", Kind: KindTimeSync, Value: "42.5", At: time.Now()})

	if s.Count("room1") != 2 {
		t.Fatalf("expected 2 events, got %d", s.Count("room1"))
	}
	if s.Count("room2") != 0 {
		t.Fatalf("expected 0 events for room2, got %d", s.Count("room2"))
	}
}

func TestRedisStoreMaxSize(t *testing.T) {
	s := newTestRedisStore(t, 3)

	for i := 0; i < 5; i++ {
		s.Append(pageEvent("room1", fmt.Sprintf("/film/%d", i)))
	}

	if s.Count("room1") != 3 {
		t.Fatalf("expected 3 events (max size), got %d", s.Count("room1"))
	}

	recent := s.Recent("room1", 10)
	if len(recent) != 3 {
		t.Fatalf("expected 3 recent events, got %d", len(recent))
	}
	if recent[0].Value != "/film/2" || recent[2].Value != "/film/4" {
		t.Errorf("expected oldest /film/2 and newest /film/4, got %q and %q",
			recent[0].Value, recent[2].Value)
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s := newTestRedisStore(t, 100)

	at := time.Now().UTC().Truncate(time.Millisecond)
	s.Append(&Event{RoomID: "room1", Kind: KindPageChanged, MemberID: "alice", Value: "/film/7", At: at})

	recent := s.Recent("room1", 1)
	if len(recent) != 1 {
		t.Fatalf("expected 1 event, got %d", len(recent))
	}
	ev := recent[0]
	if ev.Kind != KindPageChanged || ev.MemberID != "alice" || ev.Value != "/film/7" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if !ev.At.Equal(at) {
		t.Errorf("expected timestamp %v, got %v", at, ev.At)
	}
}

func TestRedisStoreDeleteRoom(t *testing.T) {
	s := newTestRedisStore(t, 100)
	s.Append(pageEvent("room1", "/film/1"))
	s.DeleteRoom("room1")

	if s.Count("room1") != 0 {
		t.Fatalf("expected 0 events after delete, got %d", s.Count("room1"))
	}
}

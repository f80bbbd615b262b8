package journal

import "sync"

// MemoryStore keeps recent events per room in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	rooms   map[string][]*Event
	maxSize int
}

// NewMemoryStore creates a journal that retains up to maxSize events per room.
func NewMemoryStore(maxSize int) *MemoryStore {
	return &MemoryStore{
		rooms:   make(map[string][]*Event),
		maxSize: maxSize,
	}
}

// Append adds an event to the room's history, trimming to maxSize.
func (s *MemoryStore) Append(ev *Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	evs := append(s.rooms[ev.RoomID], ev)
	if len(evs) > s.maxSize {
		evs = evs[len(evs)-s.maxSize:]
	}
	s.rooms[ev.RoomID] = evs
}

// Recent returns the last n events for a room, oldest first.
func (s *MemoryStore) Recent(roomID string, n int) []*Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evs := s.rooms[roomID]
	if len(evs) > n {
		evs = evs[len(evs)-n:]
	}
	result := make([]*Event, len(evs))
	copy(result, evs)
	return result
}

// Count returns the number of stored events for a room.
func (s *MemoryStore) Count(roomID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[roomID])
}

// DeleteRoom removes all stored events for a room.
func (s *MemoryStore) DeleteRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
}

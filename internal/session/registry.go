package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"
)

var (
	// ErrRoomNotFound is returned when a room or member lookup fails.
	ErrRoomNotFound = errors.New("room not found")

	// ErrAlreadyMember is returned when a member id that already belongs
	// to a room tries to join another one.
	ErrAlreadyMember = errors.New("already a member of a room")
)

// Registry owns every live room in the process. All operations are
// serialized under one mutex; handler code never sees the raw room
// collection.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	byMember map[string]string // member id -> room id
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		byMember: make(map[string]string),
	}
}

// RegisterUser binds a connection's outbound handle to a client-supplied
// identity. Pure construction: nothing is stored until the user enters
// a room.
func (g *Registry) RegisterUser(id string, out Outbound) *User {
	return &User{ID: id, Out: out}
}

// CreateRoom creates a room with the given user as its sole member and
// master, inserts it into the registry and returns it.
func (g *Registry) CreateRoom(u *User) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := generateRoomID(u.ID)
	for _, taken := g.rooms[id]; taken; _, taken = g.rooms[id] {
		id = generateRoomID(u.ID)
	}

	r := &Room{
		id:        id,
		createdAt: time.Now(),
		members:   []*User{u},
	}
	g.rooms[id] = r
	if _, ok := g.byMember[u.ID]; !ok {
		g.byMember[u.ID] = id
	}
	return r
}

// FindRoomByID returns the room with the given id.
func (g *Registry) FindRoomByID(roomID string) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rooms[roomID]
	return r, ok
}

// FindRoomByMemberID returns the room containing a member with the
// given id.
func (g *Registry) FindRoomByMemberID(memberID string) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	roomID, ok := g.byMember[memberID]
	if !ok {
		return nil, false
	}
	r, ok := g.rooms[roomID]
	return r, ok
}

// JoinRoom appends the user to the room's member list, making it a
// slave. A member id that already belongs to any room is refused, so a
// member id designates exactly one room for its whole tenure.
func (g *Registry) JoinRoom(room *Room, u *User) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.rooms[room.ID()]; !ok {
		return ErrRoomNotFound
	}
	if _, ok := g.byMember[u.ID]; ok {
		return ErrAlreadyMember
	}

	room.append(u)
	g.byMember[u.ID] = room.ID()
	return nil
}

// Summary is a read-only view of one room for the HTTP API.
type Summary struct {
	ID          string    `json:"id"`
	Location    string    `json:"location,omitempty"`
	MasterID    string    `json:"master_id"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// List returns a summary of every room, newest first.
func (g *Registry) List() []Summary {
	g.mu.Lock()
	defer g.mu.Unlock()

	result := make([]Summary, 0, len(g.rooms))
	for _, r := range g.rooms {
		result = append(result, Summary{
			ID:          r.ID(),
			Location:    r.Location(),
			MasterID:    r.Master().ID,
			MemberCount: r.MemberCount(),
			CreatedAt:   r.CreatedAt(),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// Counts returns the number of rooms and total members.
func (g *Registry) Counts() (rooms, members int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms), len(g.byMember)
}

// generateRoomID builds a practically unique room id from the creator's
// id, a bounded random integer and the current time in milliseconds.
func generateRoomID(creatorID string) string {
	n := rand.IntN(5110) - 2555
	return fmt.Sprintf("%s-%d-%d", creatorID, n, time.Now().UnixMilli())
}

package session

import (
	"sync"
	"time"
)

// Outbound is the capability to deliver a text frame to one specific
// connection and to ask whether that connection can still be sent to.
// It is a reference into the transport layer, not owned data.
type Outbound interface {
	// Send queues a frame for asynchronous delivery. It returns false
	// if the frame was dropped (slow consumer or closed connection).
	Send(data []byte) bool
	// Closed reports whether the connection is closed for sending.
	Closed() bool
}

// User is a connection bound to a client-supplied identity.
type User struct {
	ID  string
	Out Outbound
}

// Room is an ordered group of users sharing one synchronized state.
// The first member is the master; everyone after it is a slave.
type Room struct {
	id        string
	createdAt time.Time

	mu       sync.RWMutex
	location string
	members  []*User
}

// ID returns the room's identifier.
func (r *Room) ID() string { return r.id }

// CreatedAt returns when the room was created.
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// Master returns the first member of the room. The member list is never
// empty while the room exists, so this is always defined.
func (r *Room) Master() *User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members[0]
}

// Slaves returns a copy of every member except the master, in join order.
func (r *Room) Slaves() []*User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slaves := make([]*User, len(r.members)-1)
	copy(slaves, r.members[1:])
	return slaves
}

// MemberCount returns the number of members including the master.
func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Location returns the last pushed page location, empty until the first
// update.
func (r *Room) Location() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.location
}

// SetLocation records the room's current page location. It does not
// broadcast; that is the dispatcher's job.
func (r *Room) SetLocation(url string) {
	r.mu.Lock()
	r.location = url
	r.mu.Unlock()
}

// append adds a user to the member list. Callers hold the registry lock;
// the room lock serializes the append against concurrent Slaves reads.
func (r *Room) append(u *User) {
	r.mu.Lock()
	r.members = append(r.members, u)
	r.mu.Unlock()
}

// hasMember reports whether a member with the given id is in the room.
func (r *Room) hasMember(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if m.ID == id {
			return true
		}
	}
	return false
}

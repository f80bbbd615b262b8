package journal

import "time"

// Kind identifies what a recorded event describes.
type Kind string

const (
	KindRoomCreated  Kind = "roomCreated"
	KindMemberJoined Kind = "memberJoined"
	KindPageChanged  Kind = "pageChanged"
	KindTimeSync     Kind = "timeSync"
)

// Event is one entry in a room's synchronization history.
type Event struct {
	RoomID   string    `json:"room_id"`
	Kind     Kind      `json:"kind"`
	MemberID string    `json:"member_id,omitempty"`
	Value    string    `json:"value,omitempty"`
	At       time.Time `json:"at"`
}

// Store is the interface for journal backends.
type Store interface {
	Append(ev *Event)
	Recent(roomID string, n int) []*Event
	Count(roomID string) int
	DeleteRoom(roomID string)
}

// Package protocol implements the text command protocol driving room
// synchronization. Frames are single lines of space-separated fields:
// the command name first, the sending member's id second, then
// command-specific arguments.
package protocol

import "github.com/kotleni/SyncRezka-Backend/internal/session"

// Conn is the dispatcher's view of one client connection: the outbound
// send capability plus the ability to close the connection with a reason.
type Conn interface {
	session.Outbound

	// ID returns the server-assigned connection id, used for log
	// correlation only. Protocol identity travels in every frame.
	ID() string

	// Close closes the connection with a normal-closure reason.
	Close(reason string)
}

// Inbound commands.
const (
	cmdPing       = "ping"
	cmdCreateRoom = "createRoom"
	cmdJoinRoom   = "joinRoom"
	cmdUpdatePage = "updatePage"
	cmdSync       = "sync"
)

// Outbound frames.
const (
	replyJoinedToRoom  = "joinedToRoom "
	replyRoomNotFound  = "error ROOM_NOT_FOUND"
	replySyncSlavePage = "syncSlavePage "
	replySyncSlave     = "syncSlave "
)

// closeReason is the normal-closure reason sent on a terminal error.
const closeReason = "BYE"

package protocol

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kotleni/SyncRezka-Backend/internal/journal"
	"github.com/kotleni/SyncRezka-Backend/internal/metrics"
	"github.com/kotleni/SyncRezka-Backend/internal/session"
)

// Dispatcher parses inbound frames into commands and applies them to
// the session registry. One Dispatcher serves every connection.
type Dispatcher struct {
	registry *session.Registry
	journal  journal.Store
}

// NewDispatcher creates a dispatcher over the given registry and journal.
func NewDispatcher(reg *session.Registry, j journal.Store) *Dispatcher {
	return &Dispatcher{registry: reg, journal: j}
}

// Dispatch handles one inbound frame from conn. It returns false when
// the connection has been closed and its read loop should stop.
// Malformed and unknown frames are ignored; they never terminate the
// connection and never panic.
func (d *Dispatcher) Dispatch(conn Conn, frame []byte) bool {
	fields := strings.Split(string(frame), " ")
	if len(fields) < 2 {
		d.malformed(conn, frame)
		return true
	}
	cmd, memberID := fields[0], fields[1]

	switch cmd {
	case cmdPing:
		metrics.Commands.WithLabelValues(cmdPing).Inc()
		log.Debug().Str("conn", conn.ID()).Str("member", memberID).Msg("ping")
		return true

	case cmdCreateRoom:
		metrics.Commands.WithLabelValues(cmdCreateRoom).Inc()
		return d.handleCreateRoom(conn, memberID)

	case cmdJoinRoom:
		if len(fields) < 3 {
			d.malformed(conn, frame)
			return true
		}
		metrics.Commands.WithLabelValues(cmdJoinRoom).Inc()
		return d.handleJoinRoom(conn, memberID, fields[2])

	case cmdUpdatePage:
		if len(fields) < 3 {
			d.malformed(conn, frame)
			return true
		}
		metrics.Commands.WithLabelValues(cmdUpdatePage).Inc()
		return d.handleUpdatePage(conn, memberID, fields[2])

	case cmdSync:
		if len(fields) < 3 {
			d.malformed(conn, frame)
			return true
		}
		metrics.Commands.WithLabelValues(cmdSync).Inc()
		return d.handleSync(conn, memberID, fields[2])

	default:
		d.malformed(conn, frame)
		return true
	}
}

func (d *Dispatcher) handleCreateRoom(conn Conn, memberID string) bool {
	user := d.registry.RegisterUser(memberID, conn)
	room := d.registry.CreateRoom(user)

	metrics.RoomsCreated.Inc()
	log.Info().Str("member", memberID).Str("room", room.ID()).Msg("room created")

	d.record(&journal.Event{
		RoomID:   room.ID(),
		Kind:     journal.KindRoomCreated,
		MemberID: memberID,
		At:       time.Now(),
	})

	conn.Send([]byte(replyJoinedToRoom + room.ID()))
	return true
}

func (d *Dispatcher) handleJoinRoom(conn Conn, memberID, roomID string) bool {
	room, ok := d.registry.FindRoomByID(roomID)
	if !ok {
		log.Warn().Str("member", memberID).Str("room", roomID).Msg("join: room not found")
		return d.closeNotFound(conn)
	}

	user := d.registry.RegisterUser(memberID, conn)
	if err := d.registry.JoinRoom(room, user); err != nil {
		if errors.Is(err, session.ErrAlreadyMember) {
			// The wire protocol has no frame for this; treat it like
			// malformed input and keep the connection open.
			log.Warn().Str("member", memberID).Str("room", roomID).Msg("join: already in a room")
			metrics.MalformedFrames.Inc()
			return true
		}
		return d.closeNotFound(conn)
	}

	log.Info().Str("member", memberID).Str("room", room.ID()).Msg("member joined")

	d.record(&journal.Event{
		RoomID:   room.ID(),
		Kind:     journal.KindMemberJoined,
		MemberID: memberID,
		At:       time.Now(),
	})

	conn.Send([]byte(replyJoinedToRoom + room.ID()))
	return true
}

func (d *Dispatcher) handleUpdatePage(conn Conn, memberID, pageURL string) bool {
	room, ok := d.registry.FindRoomByMemberID(memberID)
	if !ok {
		log.Warn().Str("member", memberID).Msg("updatePage: room not found")
		return d.closeNotFound(conn)
	}

	room.SetLocation(pageURL)

	d.record(&journal.Event{
		RoomID:   room.ID(),
		Kind:     journal.KindPageChanged,
		MemberID: memberID,
		Value:    pageURL,
		At:       time.Now(),
	})

	d.broadcast(room, replySyncSlavePage+pageURL)
	return true
}

func (d *Dispatcher) handleSync(conn Conn, memberID, timeSeconds string) bool {
	room, ok := d.registry.FindRoomByMemberID(memberID)
	if !ok {
		log.Warn().Str("member", memberID).Msg("sync: room not found")
		return d.closeNotFound(conn)
	}

	d.record(&journal.Event{
		RoomID:   room.ID(),
		Kind:     journal.KindTimeSync,
		MemberID: memberID,
		Value:    timeSeconds,
		At:       time.Now(),
	})

	d.broadcast(room, replySyncSlave+timeSeconds)
	return true
}

// broadcast delivers payload to every slave whose connection is still
// open for sending. Each recipient is an independent fire-and-forget
// attempt: a closed or slow slave never affects the others.
func (d *Dispatcher) broadcast(room *session.Room, payload string) {
	data := []byte(payload)
	sent := 0
	for _, slave := range room.Slaves() {
		if slave.Out.Closed() {
			metrics.BroadcastsSkipped.Inc()
			continue
		}
		if slave.Out.Send(data) {
			sent++
			metrics.BroadcastsSent.Inc()
		} else {
			metrics.BroadcastsSkipped.Inc()
		}
	}
	log.Debug().Str("room", room.ID()).Int("slaves", sent).Str("frame", payload).Msg("broadcast")
}

// closeNotFound sends the ROOM_NOT_FOUND error frame and closes the
// connection normally. This is the protocol's only terminal error.
func (d *Dispatcher) closeNotFound(conn Conn) bool {
	conn.Send([]byte(replyRoomNotFound))
	conn.Close(closeReason)
	return false
}

func (d *Dispatcher) malformed(conn Conn, frame []byte) {
	metrics.MalformedFrames.Inc()
	log.Debug().Str("conn", conn.ID()).Bytes("frame", frame).Msg("ignoring malformed frame")
}

func (d *Dispatcher) record(ev *journal.Event) {
	if d.journal != nil {
		d.journal.Append(ev)
	}
}

package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/kotleni/SyncRezka-Backend/internal/journal"
	"github.com/kotleni/SyncRezka-Backend/internal/protocol"
	"github.com/kotleni/SyncRezka-Backend/internal/ratelimit"
	"github.com/kotleni/SyncRezka-Backend/internal/session"
)

// newSyncServer wires a full stack (registry, journal, dispatcher,
// transport) behind an httptest server.
func newSyncServer(t *testing.T, limiter *ratelimit.CommandLimiter) (*httptest.Server, *session.Registry) {
	t.Helper()
	reg := session.NewRegistry()
	j := journal.NewMemoryStore(100)
	cm := NewConnManager()
	h := NewHandler(cm, protocol.NewDispatcher(reg, j), limiter, 4096)
	ts := httptest.NewServer(h)
	t.Cleanup(func() {
		ts.Close()
		cm.Shutdown()
	})
	return ts, reg
}

func writeFrame(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
		t.Fatalf("write %q: %v", frame, err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func TestCreateJoinUpdateSync(t *testing.T) {
	ts, reg := newSyncServer(t, nil)

	a := dialWS(t, ts.URL)
	defer a.Close(websocket.StatusNormalClosure, "")

	writeFrame(t, a, "createRoom A")
	joined := readFrame(t, a)
	const prefix = "joinedToRoom "
	if len(joined) <= len(prefix) || joined[:len(prefix)] != prefix {
		t.Fatalf("A: expected joinedToRoom reply, got %q", joined)
	}
	roomID := joined[len(prefix):]

	b := dialWS(t, ts.URL)
	defer b.Close(websocket.StatusNormalClosure, "")

	writeFrame(t, b, "joinRoom B "+roomID)
	if got := readFrame(t, b); got != "joinedToRoom "+roomID {
		t.Fatalf("B: expected joinedToRoom reply, got %q", got)
	}

	writeFrame(t, a, "updatePage A /page2")
	if got := readFrame(t, b); got != "syncSlavePage /page2" {
		t.Errorf("B: expected syncSlavePage /page2, got %q", got)
	}

	writeFrame(t, a, "sync A 42.5")
	if got := readFrame(t, b); got != "syncSlave 42.5" {
		t.Errorf("B: expected syncSlave 42.5, got %q", got)
	}

	room, ok := reg.FindRoomByID(roomID)
	if !ok {
		t.Fatal("room missing from registry")
	}
	if room.Location() != "/page2" {
		t.Errorf("expected location /page2, got %q", room.Location())
	}
	if room.Master().ID != "A" || room.MemberCount() != 2 {
		t.Errorf("unexpected room state: master %q, %d members", room.Master().ID, room.MemberCount())
	}
}

func TestJoinUnknownRoomClosesConnection(t *testing.T) {
	ts, reg := newSyncServer(t, nil)

	c := dialWS(t, ts.URL)
	defer c.Close(websocket.StatusNormalClosure, "")

	writeFrame(t, c, "joinRoom C UNKNOWN")
	if got := readFrame(t, c); got != "error ROOM_NOT_FOUND" {
		t.Fatalf("expected error frame, got %q", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := c.Read(ctx); err == nil {
		t.Error("expected connection to be closed after the error frame")
	}

	if rooms, _ := reg.Counts(); rooms != 0 {
		t.Errorf("failed join mutated the registry: %d rooms", rooms)
	}
}

func TestMalformedFramesKeepConnectionOpen(t *testing.T) {
	ts, _ := newSyncServer(t, nil)

	conn := dialWS(t, ts.URL)
	defer conn.Close(websocket.StatusNormalClosure, "")

	writeFrame(t, conn, "nonsense")
	writeFrame(t, conn, "teleport alice /moon")
	writeFrame(t, conn, "ping alice")

	// The connection survives all of the above.
	writeFrame(t, conn, "createRoom alice")
	if got := readFrame(t, conn); !strings.HasPrefix(got, "joinedToRoom ") {
		t.Fatalf("expected joinedToRoom after malformed frames, got %q", got)
	}
}

func TestRateLimitedFramesAreDropped(t *testing.T) {
	limiter := ratelimit.NewCommandLimiter(1, time.Minute)
	ts, reg := newSyncServer(t, limiter)

	conn := dialWS(t, ts.URL)
	defer conn.Close(websocket.StatusNormalClosure, "")

	writeFrame(t, conn, "createRoom alice")
	if got := readFrame(t, conn); !strings.HasPrefix(got, "joinedToRoom ") {
		t.Fatalf("expected joinedToRoom, got %q", got)
	}

	// Over budget: the frame is dropped, no room is created and no
	// reply arrives.
	writeFrame(t, conn, "createRoom alice2")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, _, err := conn.Read(ctx); err == nil {
		t.Error("expected no reply for a rate-limited frame")
	}

	waitFor(t, func() bool { rooms, _ := reg.Counts(); return rooms == 1 })
}

package hub

import (
	"log/slog"
	"strings"
	"sync"

	"chatrelay-server/domain"
)

// session is the core-side record for one live connection: the identity it
// claimed on its first successful join and the rooms it currently belongs to.
type session struct {
	identity string
	rooms    map[string]struct{}
}

// Hub owns the room registry, the typing registry, and the per-connection
// sessions. Every mutation runs under one hub-wide mutex, so each operation is
// atomic with respect to concurrent membership changes.
type Hub struct {
	mu       sync.Mutex
	rooms    map[string]map[domain.Connection]struct{}
	typing   map[string]map[string]struct{} // room -> identities currently typing
	sessions map[domain.Connection]*session
}

func New() *Hub {
	return &Hub{
		rooms:    make(map[string]map[domain.Connection]struct{}),
		typing:   make(map[string]map[string]struct{}),
		sessions: make(map[domain.Connection]*session),
	}
}

// Connect registers a live transport connection with an empty session.
func (h *Hub) Connect(conn domain.Connection) {
	h.mu.Lock()
	h.session(conn)
	count := len(h.sessions)
	h.mu.Unlock()

	slog.Info("client connected", "clientId", conn.ID(), "clients", count)
}

// Join adds conn to a room under the given identity, or under the identity
// the connection already claimed on an earlier join. The join is rejected and
// the connection closed when that identity is already present in the room
// (case-insensitive). A join for a room already joined is a silent no-op.
func (h *Hub) Join(conn domain.Connection, room, identity string) {
	if room == "" || identity == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.session(conn)
	if _, ok := s.rooms[room]; ok {
		return
	}

	// The identity is claimed on the first successful join and persists until
	// disconnect. Later joins keep it even when the request names another
	// sender, so membership in earlier rooms is never renamed.
	if s.identity != "" {
		identity = s.identity
	}

	for member := range h.rooms[room] {
		other := h.sessions[member]
		if other != nil && strings.EqualFold(other.identity, identity) {
			h.sendTo(conn, domain.ErrorEvent{
				Type:    domain.TypeError,
				Reason:  domain.ReasonDuplicateLogin,
				Message: "identity already in use in room: " + room,
			})
			slog.Warn("duplicate login rejected", "room", room, "identity", identity, "clientId", conn.ID())
			_ = conn.Close()
			return
		}
	}

	s.identity = identity
	members := h.rooms[room]
	if members == nil {
		members = make(map[domain.Connection]struct{})
		h.rooms[room] = members
	}
	members[conn] = struct{}{}
	s.rooms[room] = struct{}{}

	slog.Info("client joined room", "room", room, "identity", identity, "members", len(members))

	h.sendTo(conn, domain.SystemEvent{Type: domain.TypeSystem, Content: "Joined room: " + room})
	h.broadcast(room, domain.MemberEvent{Type: domain.TypeUserJoined, Room: room, Sender: identity}, conn)
	h.broadcast(room, h.presenceEvent(room), nil)
}

// Leave removes conn from a room. Leaving a room the connection is not a
// member of is an idempotent no-op.
func (h *Hub) Leave(conn domain.Connection, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(conn, room)
}

// Disconnect force-leaves every room the connection still belongs to and
// drops its session. Iterates over a snapshot since leaving mutates the set.
func (h *Hub) Disconnect(conn domain.Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.sessions[conn]
	if s == nil {
		return
	}

	rooms := make([]string, 0, len(s.rooms))
	for room := range s.rooms {
		rooms = append(rooms, room)
	}
	for _, room := range rooms {
		h.cleanupRoom(conn, room)
	}

	delete(h.sessions, conn)
	slog.Info("client disconnected", "clientId", conn.ID(), "clients", len(h.sessions))
}

// SetTyping updates the room's typing set for conn's identity and broadcasts
// the full updated list to all members. Ignored unless conn is a member.
func (h *Hub) SetTyping(conn domain.Connection, room string, typing bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.member(conn, room)
	if s == nil {
		return
	}

	typers := h.typing[room]
	if typing {
		if typers == nil {
			typers = make(map[string]struct{})
			h.typing[room] = typers
		}
		typers[s.identity] = struct{}{}
	} else if typers != nil {
		delete(typers, s.identity)
		if len(typers) == 0 {
			delete(h.typing, room)
		}
	}

	h.broadcast(room, h.typingEvent(room), nil)
}

func (h *Hub) Stats() (rooms, clients int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms), len(h.sessions)
}

// session returns the record for conn, creating it if needed. Caller holds h.mu.
func (h *Hub) session(conn domain.Connection) *session {
	s := h.sessions[conn]
	if s == nil {
		s = &session{rooms: make(map[string]struct{})}
		h.sessions[conn] = s
	}
	return s
}

// member returns conn's session only when it currently belongs to room.
// Caller holds h.mu.
func (h *Hub) member(conn domain.Connection, room string) *session {
	s := h.sessions[conn]
	if s == nil {
		return nil
	}
	if _, ok := s.rooms[room]; !ok {
		return nil
	}
	return s
}

// leaveLocked performs the leave cascade: membership removal, room deletion
// when emptied, typing cleanup, and notifications to the remaining members.
// Caller holds h.mu.
func (h *Hub) leaveLocked(conn domain.Connection, room string) {
	s := h.sessions[conn]
	if s == nil {
		return
	}
	if _, ok := s.rooms[room]; !ok {
		return
	}
	delete(s.rooms, room)

	members := h.rooms[room]
	delete(members, conn)
	if len(members) == 0 {
		delete(h.rooms, room)
		slog.Info("room removed", "room", room)
	}

	// The typing set is deleted silently when this removal empties it,
	// broadcast to the remaining members otherwise.
	if typers := h.typing[room]; typers != nil {
		if _, ok := typers[s.identity]; ok {
			delete(typers, s.identity)
			if len(typers) == 0 {
				delete(h.typing, room)
			} else {
				h.broadcast(room, h.typingEvent(room), nil)
			}
		}
	}

	slog.Info("client left room", "room", room, "identity", s.identity)

	h.sendTo(conn, domain.SystemEvent{Type: domain.TypeSystem, Content: "Left room: " + room})
	h.broadcast(room, domain.MemberEvent{Type: domain.TypeUserLeft, Room: room, Sender: s.identity}, nil)
	h.broadcast(room, h.presenceEvent(room), nil)
}

// cleanupRoom isolates per-room disconnect cleanup so a failure in one room
// cannot stop the cascade for the remaining rooms. Caller holds h.mu.
func (h *Hub) cleanupRoom(conn domain.Connection, room string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("room cleanup failed", "room", room, "clientId", conn.ID(), "panic", r)
		}
	}()
	h.leaveLocked(conn, room)
}

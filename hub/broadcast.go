package hub

import (
	"encoding/json"
	"log/slog"
	"time"

	"chatrelay-server/domain"
)

// RelayMessage fans a chat message out to the other members of the room.
// Silently dropped unless the sender currently belongs to the room. A zero
// timestamp defaults to server time at construction.
func (h *Hub) RelayMessage(conn domain.Connection, room, content, reply string, timestamp int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.member(conn, room)
	if s == nil {
		return
	}
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	h.broadcast(room, domain.MessageEvent{
		Type:      domain.TypeMessage,
		Room:      room,
		Sender:    s.identity,
		Content:   content,
		Timestamp: timestamp,
		Reply:     reply,
	}, conn)
}

// RelayReaction fans a reaction out to the other members of the room, under
// the same membership guard as RelayMessage.
func (h *Hub) RelayReaction(conn domain.Connection, room, target, emoji string, timestamp int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.member(conn, room)
	if s == nil {
		return
	}
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	h.broadcast(room, domain.ReactionEvent{
		Type:      domain.TypeReaction,
		Room:      room,
		Sender:    s.identity,
		Target:    target,
		Emoji:     emoji,
		Timestamp: timestamp,
	}, conn)
}

// Presence broadcasts the current member identity list to the whole room on
// an explicit request from a member.
func (h *Hub) Presence(conn domain.Connection, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.member(conn, room) == nil {
		return
	}
	h.broadcast(room, h.presenceEvent(room), nil)
}

// presenceEvent lists the identities present in room. Connections that have
// not claimed an identity never appear in presence. Caller holds h.mu.
func (h *Hub) presenceEvent(room string) domain.PresenceEvent {
	members := h.rooms[room]
	users := make([]string, 0, len(members))
	for member := range members {
		s := h.sessions[member]
		if s == nil || s.identity == "" {
			continue
		}
		users = append(users, s.identity)
	}
	return domain.PresenceEvent{Type: domain.TypePresence, Room: room, Users: users}
}

// typingEvent lists the identities currently typing in room. Caller holds h.mu.
func (h *Hub) typingEvent(room string) domain.TypingEvent {
	typers := h.typing[room]
	users := make([]string, 0, len(typers))
	for identity := range typers {
		users = append(users, identity)
	}
	return domain.TypingEvent{Type: domain.TypeTyping, Room: room, TypingUsers: users}
}

// broadcast delivers event to every member of room except exclude. Unknown
// rooms are a no-op. Delivery is best effort: members whose transport is not
// open are skipped and individual send failures never abort the fan-out.
// Caller holds h.mu, so the eligible set is fixed for the whole call.
func (h *Hub) broadcast(room string, event any, exclude domain.Connection) {
	members := h.rooms[room]
	if len(members) == 0 {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal event", "room", room, "error", err)
		return
	}

	for member := range members {
		if member == exclude {
			continue
		}
		if !member.IsOpen() {
			continue
		}
		if err := member.Send(data); err != nil {
			slog.Debug("send skipped", "room", room, "clientId", member.ID(), "error", err)
		}
	}
}

// sendTo delivers event to a single connection, swallowing failures.
func (h *Hub) sendTo(conn domain.Connection, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal event", "error", err)
		return
	}
	if !conn.IsOpen() {
		return
	}
	if err := conn.Send(data); err != nil {
		slog.Debug("send skipped", "clientId", conn.ID(), "error", err)
	}
}

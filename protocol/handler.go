package protocol

import (
	"encoding/json"
	"errors"
	"log/slog"

	"chatrelay-server/domain"
)

// Handler is the per-message dispatch state machine sitting between the
// transport and the relay core.
type Handler struct {
	relay domain.Relay
}

func NewHandler(r domain.Relay) *Handler {
	return &Handler{relay: r}
}

// Handle decodes one inbound frame and dispatches it. Malformed JSON gets an
// error reply with the connection kept open; a well-formed document with
// wrong-shaped fields, a missing type, or missing required fields is dropped
// without a reply.
func (h *Handler) Handle(conn domain.Connection, data []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			slog.Debug("wrong field shape", "clientId", conn.ID(), "field", typeErr.Field)
			return
		}
		h.reply(conn, domain.ErrorEvent{Type: domain.TypeError, Message: "Invalid JSON"})
		return
	}

	switch env.Type {
	case "":
		return
	case domain.TypeJoin:
		if env.Room == "" || env.Sender == "" {
			return
		}
		h.relay.Join(conn, env.Room, env.Sender)
	case domain.TypeLeave:
		if env.Room == "" {
			return
		}
		h.relay.Leave(conn, env.Room)
	case domain.TypeMessage:
		if env.Room == "" || env.Content == "" {
			return
		}
		h.relay.RelayMessage(conn, env.Room, env.Content, env.Reply, env.Timestamp)
	case domain.TypeReaction:
		if env.Room == "" || env.Target == "" || env.Emoji == "" {
			return
		}
		h.relay.RelayReaction(conn, env.Room, env.Target, env.Emoji, env.Timestamp)
	case domain.TypeTyping:
		if env.Room == "" || env.Typing == nil {
			return
		}
		h.relay.SetTyping(conn, env.Room, *env.Typing)
	case domain.TypePresenceRequest:
		if env.Room == "" {
			return
		}
		h.relay.Presence(conn, env.Room)
	default:
		h.reply(conn, domain.ErrorEvent{Type: domain.TypeError, Message: "Unknown message type"})
	}
}

func (h *Handler) reply(conn domain.Connection, event domain.ErrorEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := conn.Send(data); err != nil {
		slog.Debug("reply skipped", "clientId", conn.ID(), "error", err)
	}
}

package domain

// Inbound message types.
const (
	TypeJoin            = "join"
	TypeLeave           = "leave"
	TypeMessage         = "message"
	TypeReaction        = "reaction"
	TypeTyping          = "typing"
	TypePresenceRequest = "presence_request"
)

// Outbound event types.
const (
	TypeSystem     = "system"
	TypeError      = "error"
	TypePresence   = "presence"
	TypeUserJoined = "user_joined"
	TypeUserLeft   = "user_left"
)

// ReasonDuplicateLogin marks the error event sent when a join claims an
// identity already present in the room.
const ReasonDuplicateLogin = "duplicate_login"

// Envelope is the decoded form of one inbound client frame. Typing is a
// pointer so a missing boolean can be told apart from false.
type Envelope struct {
	Type      string `json:"type"`
	Room      string `json:"room"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Reply     string `json:"reply"`
	Timestamp int64  `json:"timestamp"`
	Target    string `json:"target"`
	Emoji     string `json:"emoji"`
	Typing    *bool  `json:"typing"`
}

type SystemEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Content string `json:"content,omitempty"`
}

type MessageEvent struct {
	Type      string `json:"type"`
	Room      string `json:"room"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	Reply     string `json:"reply,omitempty"`
}

type ReactionEvent struct {
	Type      string `json:"type"`
	Room      string `json:"room"`
	Sender    string `json:"sender"`
	Target    string `json:"target"`
	Emoji     string `json:"emoji"`
	Timestamp int64  `json:"timestamp"`
}

type TypingEvent struct {
	Type        string   `json:"type"`
	Room        string   `json:"room"`
	TypingUsers []string `json:"typingUsers"`
}

type PresenceEvent struct {
	Type  string   `json:"type"`
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// MemberEvent announces a membership change (user_joined / user_left).
type MemberEvent struct {
	Type   string `json:"type"`
	Room   string `json:"room"`
	Sender string `json:"sender"`
}

// Connection is the transport capability the core relies on.
type Connection interface {
	ID() string
	Send(data []byte) error
	IsOpen() bool
	Close() error
}

// Relay is the room membership and fan-out engine.
type Relay interface {
	Connect(conn Connection)
	Disconnect(conn Connection)
	Join(conn Connection, room, identity string)
	Leave(conn Connection, room string)
	SetTyping(conn Connection, room string, typing bool)
	RelayMessage(conn Connection, room, content, reply string, timestamp int64)
	RelayReaction(conn Connection, room, target, emoji string, timestamp int64)
	Presence(conn Connection, room string)
	Stats() (rooms, clients int)
}

// MessageHandler processes one inbound frame for a connection.
type MessageHandler interface {
	Handle(conn Connection, data []byte)
}

package chat

import "time"

// Role identifies who authored a message in a session.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleBot
}

// DefaultSessionID is used when a client does not name its session.
const DefaultSessionID = "default"

// Message persists individual turns. IDs are assigned by the store and
// define chronological order within a session.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn is one entry of a context window.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Turn projects the message onto its context-window form.
func (m Message) Turn() Turn {
	return Turn{Role: m.Role, Text: m.Text}
}

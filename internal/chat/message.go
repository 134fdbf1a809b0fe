// Package chat is the chat widget core: the message history, the draft, the
// single in-flight moderation guard and the display-filtering rule. It knows
// nothing about terminals or websockets; surfaces drive a Session and paint
// the View it renders.
package chat

// Origin tells which side of the conversation a message came from.
type Origin string

const (
	OriginSelf    Origin = "self"
	OriginPartner Origin = "partner"
)

// Message is a single entry in the history. It is a value: patching a message
// replaces the element in the history rather than mutating a shared pointer.
type Message struct {
	ID     string `json:"id"`
	Text   string `json:"text"` // literal text as typed
	Origin Origin `json:"origin"`
	Hidden bool   `json:"hidden"`
	SentAt string `json:"sent_at"` // formatted once at submission
}

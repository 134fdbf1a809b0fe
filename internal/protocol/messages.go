// Package protocol defines the WebSocket frames exchanged between the web page
// and the server. All frames are JSON objects with a "type" discriminator.
package protocol

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/cleanchat/cleanchat/internal/chat"
)

// ---------------------------------------------------------------------------
// Message type constants
// ---------------------------------------------------------------------------

// Client -> Server message types.
const (
	TypeDraft = "draft"
	TypeSend  = "send"
	TypePing  = "ping"
)

// Server -> Client message types.
const (
	TypeSessionCreated = "session_created"
	TypeView           = "view"
	TypeError          = "error"
	TypePong           = "pong"
)

// Error codes carried by ErrorMsg.
const (
	CodeBadMessage = "bad_message"
	CodeTooLarge   = "too_large"
)

// ---------------------------------------------------------------------------
// Envelope
// ---------------------------------------------------------------------------

// Envelope holds the message type and the raw JSON payload for deferred
// parsing into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON captures the raw bytes and extracts only the "type" field.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return errors.Wrap(err, "protocol: unmarshal envelope")
	}
	if partial.Type == "" {
		return errors.New(`protocol: missing or empty "type" field`)
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Client -> Server message structs
// ---------------------------------------------------------------------------

// DraftMsg replaces the draft with the input's current text.
type DraftMsg struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendMsg submits the draft. When Text is present it replaces the draft
// first.
type SendMsg struct {
	Type string  `json:"type"`
	Text *string `json:"text,omitempty"`
}

// PingMsg is a client-initiated keepalive ping.
type PingMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Server -> Client message structs
// ---------------------------------------------------------------------------

// SessionCreatedMsg is sent once when the websocket session starts.
type SessionCreatedMsg struct {
	Type          string `json:"type"`
	SessionID     string `json:"session_id"`
	MaxDraftChars int    `json:"max_draft_chars"`
}

// ViewMsg carries the full widget view to paint.
type ViewMsg struct {
	Type string    `json:"type"`
	View chat.View `json:"view"`
}

// ErrorMsg reports a rejected frame. It never ends the session.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseClientMessage parses raw WebSocket bytes into a typed client message.
// An error is returned for malformed JSON and unknown or server-only types.
func ParseClientMessage(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, errors.Wrap(err, "protocol: parse message")
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeDraft:
		var m DraftMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeSend:
		var m SendMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypePing:
		var m PingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, errors.Errorf("protocol: unknown client message type: %q", env.Type)
	}

	if err != nil {
		return env.Type, nil, errors.Wrapf(err, "protocol: decode %q payload", env.Type)
	}
	return env.Type, msg, nil
}

// NewServerMessage encodes payload as JSON with "type" set to msgType.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "protocol: marshal payload")
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "protocol: payload is not an object")
	}

	typ, _ := json.Marshal(msgType)
	m["type"] = typ

	out, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "protocol: marshal server message")
	}
	return out, nil
}

// NewView encodes a view frame.
func NewView(v chat.View) ([]byte, error) {
	return NewServerMessage(TypeView, ViewMsg{View: v})
}

// NewError encodes an error frame.
func NewError(code, message string) ([]byte, error) {
	return NewServerMessage(TypeError, ErrorMsg{Code: code, Message: message})
}

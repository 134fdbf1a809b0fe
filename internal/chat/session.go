package chat

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/cleanchat/cleanchat/internal/moderation"
)

const (
	// MaxDraftChars bounds the draft, counted in runes.
	MaxDraftChars = 500

	// DefaultTimeFormat renders sentAt as two-digit hour and minute.
	DefaultTimeFormat = "03:04 PM"
)

var (
	// ErrEmptyDraft rejects a submit whose draft is empty after trimming.
	ErrEmptyDraft = errors.New("chat: draft is empty")

	// ErrPending rejects a submit while a moderation call is in flight.
	ErrPending = errors.New("chat: a message is awaiting moderation")

	// ErrStaleTicket is returned when a ticket does not name an unsettled
	// message in the history.
	ErrStaleTicket = errors.New("chat: ticket does not match history")
)

// Ticket names the message a moderation call is about. It is captured when
// the message is appended, so the verdict lands on that message no matter
// what was appended since.
type Ticket struct {
	Index     int
	MessageID string
	Text      string
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the time source used for sentAt.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithTimeFormat sets the time.Format layout used for sentAt.
func WithTimeFormat(layout string) Option {
	return func(s *Session) {
		if layout != "" {
			s.layout = layout
		}
	}
}

// Session is the state of one chat widget. It is not safe for concurrent
// use; a single loop owns it.
type Session struct {
	draft    string
	history  []Message
	pending  bool
	inflight Ticket
	open     map[string]struct{}
	revision uint64

	now    func() time.Time
	layout string
	newID  func() string
}

// NewSession returns an empty, idle session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		now:    time.Now,
		layout: DefaultTimeFormat,
		newID:  uuid.NewString,
		open:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetDraft replaces the draft, truncated to MaxDraftChars runes. Typing is
// allowed while a call is pending.
func (s *Session) SetDraft(text string) {
	s.draft = clampDraft(text)
}

// Draft returns the current draft.
func (s *Session) Draft() string {
	return s.draft
}

// Pending reports whether a moderation call is in flight.
func (s *Session) Pending() bool {
	return s.pending
}

// CanSubmit reports whether Submit would accept the current draft.
func (s *Session) CanSubmit() bool {
	return !s.pending && strings.TrimSpace(s.draft) != ""
}

// Submit commits the draft: it clears the draft, marks the session pending and
// appends a visible message stamped with the current time. The caller issues
// the moderation call for the returned ticket. An empty draft or a pending
// call rejects the submit and leaves the session untouched.
func (s *Session) Submit() (Ticket, error) {
	if strings.TrimSpace(s.draft) == "" {
		return Ticket{}, ErrEmptyDraft
	}
	if s.pending {
		return Ticket{}, ErrPending
	}

	text := s.draft
	s.draft = ""
	s.pending = true

	msg := Message{
		ID:     s.newID(),
		Text:   text,
		Origin: OriginSelf,
		SentAt: s.now().Format(s.layout),
	}
	s.history = append(s.history, msg)
	s.revision++

	s.inflight = Ticket{Index: len(s.history) - 1, MessageID: msg.ID, Text: text}
	s.open[msg.ID] = struct{}{}
	return s.inflight, nil
}

// Resolve applies a verdict to the ticket's message and returns the session
// to idle. A ticket settles once; later verdicts for it return ErrStaleTicket,
// so a hidden message never becomes visible again.
func (s *Session) Resolve(t Ticket, v moderation.Verdict) error {
	if !s.owns(t) {
		return errors.Wrapf(ErrStaleTicket, "message %s", t.MessageID)
	}

	msg := s.history[t.Index]
	msg.Hidden = msg.Hidden || v.Flagged
	s.history[t.Index] = msg
	s.revision++

	s.settle(t)
	return nil
}

// Fail records that the ticket's moderation call failed. The message stays
// as it is (visible) and the session returns to idle.
func (s *Session) Fail(t Ticket) error {
	if !s.owns(t) {
		return errors.Wrapf(ErrStaleTicket, "message %s", t.MessageID)
	}
	s.settle(t)
	return nil
}

// History returns a copy of the messages in display order.
func (s *Session) History() []Message {
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the number of messages.
func (s *Session) Len() int {
	return len(s.history)
}

// Filtered counts hidden messages.
func (s *Session) Filtered() int {
	n := 0
	for _, m := range s.history {
		if m.Hidden {
			n++
		}
	}
	return n
}

// Revision changes whenever the history changes.
func (s *Session) Revision() uint64 {
	return s.revision
}

func (s *Session) owns(t Ticket) bool {
	if _, ok := s.open[t.MessageID]; !ok {
		return false
	}
	return t.Index >= 0 && t.Index < len(s.history) && s.history[t.Index].ID == t.MessageID
}

func (s *Session) settle(t Ticket) {
	delete(s.open, t.MessageID)
	if s.pending && s.inflight.MessageID == t.MessageID {
		s.pending = false
		s.inflight = Ticket{}
	}
}

func clampDraft(text string) string {
	if utf8.RuneCountInString(text) <= MaxDraftChars {
		return text
	}
	n := 0
	for i := range text {
		if n == MaxDraftChars {
			return text[:i]
		}
		n++
	}
	return text
}

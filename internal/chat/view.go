package chat

import "fmt"

// Fixed strings shown by every surface.
const (
	Title           = "CleanChat AI"
	Subtitle        = "Protected by AI moderation"
	WelcomeTitle    = "Welcome to CleanChat!"
	WelcomeSubtitle = "Start a conversation. Toxic messages will be filtered."
	InputHint       = "Type your message..."
	Placeholder     = "🚫 Message hidden due to toxic content"
	ProtectionLabel = "🛡️ AI Protection Active"
)

// Align is the horizontal placement of a row.
type Align string

const (
	AlignRight Align = "right"
	AlignLeft  Align = "left"
)

// Row is one rendered message. Hidden rows carry the placeholder as Text and
// no timestamp; the unfiltered text never leaves the session for them.
type Row struct {
	ID     string `json:"id"`
	Align  Align  `json:"align"`
	Hidden bool   `json:"hidden"`
	Text   string `json:"text"`
	SentAt string `json:"sent_at,omitempty"`
}

// View is everything a surface needs to paint the widget.
type View struct {
	Welcome  bool   `json:"welcome"`
	Rows     []Row  `json:"rows"`
	Filtered int    `json:"filtered"`
	Pending  bool   `json:"pending"`
	Draft    string `json:"draft"`
	CanSend  bool   `json:"can_send"`
	Revision uint64 `json:"revision"`
	ScrollTo int    `json:"scroll_to"` // index of the newest row, -1 when empty
}

// FooterText is the filtered-count footer, e.g. "2 messages filtered".
func (v View) FooterText() string {
	return fmt.Sprintf("%d messages filtered", v.Filtered)
}

// Render produces the display list for the current state.
func (s *Session) Render() View {
	v := View{
		Welcome:  len(s.history) == 0,
		Rows:     make([]Row, 0, len(s.history)),
		Pending:  s.pending,
		Draft:    s.draft,
		CanSend:  s.CanSubmit(),
		Revision: s.revision,
		ScrollTo: len(s.history) - 1,
	}

	for _, m := range s.history {
		row := Row{ID: m.ID, Align: AlignLeft, Hidden: m.Hidden}
		if m.Origin == OriginSelf {
			row.Align = AlignRight
		}
		if m.Hidden {
			row.Text = Placeholder
			v.Filtered++
		} else {
			row.Text = m.Text
			row.SentAt = m.SentAt
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}

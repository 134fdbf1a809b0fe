// Package tui is the terminal chat widget: a bubbletea program that drives a
// chat session and paints its view.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/cleanchat/cleanchat/internal/chat"
	"github.com/cleanchat/cleanchat/internal/moderation"
)

const (
	headerLines = 2
	inputLines  = 1
	footerLines = 1
)

// verdictMsg carries the outcome of a moderation call back to Update.
type verdictMsg struct {
	ticket  chat.Ticket
	verdict moderation.Verdict
	err     error
	took    time.Duration
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger used for moderation outcomes.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Model) { m.log = l }
}

// WithCallTimeout bounds each moderation call. Zero means no bound.
func WithCallTimeout(d time.Duration) Option {
	return func(m *Model) { m.timeout = d }
}

// Model is the bubbletea model of the terminal widget.
type Model struct {
	ctx        context.Context
	session    *chat.Session
	classifier moderation.Classifier
	timeout    time.Duration
	log        zerolog.Logger

	input    textinput.Model
	viewport viewport.Model
	width    int
	revision uint64
}

// New returns a model driving s. Moderation calls run under ctx.
func New(ctx context.Context, s *chat.Session, classifier moderation.Classifier, opts ...Option) Model {
	in := textinput.New()
	in.Placeholder = chat.InputHint
	in.CharLimit = chat.MaxDraftChars
	in.Prompt = "> "
	in.Focus()

	m := Model{
		ctx:        ctx,
		session:    s,
		classifier: classifier,
		log:        zerolog.Nop(),
		input:      in,
		viewport:   viewport.New(80, 20),
		width:      80,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.input.Width = m.width - len(m.input.Prompt) - 1
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-headerLines-inputLines-footerLines-2)
		m.input.Width = msg.Width - len(m.input.Prompt) - 1
		m.revision = 0
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.session.SetDraft(m.input.Value())
		return m, cmd

	case verdictMsg:
		m.settle(msg)
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if !m.session.CanSubmit() {
		return m, nil
	}
	t, err := m.session.Submit()
	if err != nil {
		m.log.Debug().Err(err).Msg("submit rejected")
		return m, nil
	}
	m.input.SetValue("")
	m.refresh()
	return m, m.check(t)
}

// check issues the moderation call for t off the update loop.
func (m Model) check(t chat.Ticket) tea.Cmd {
	ctx, classifier, timeout := m.ctx, m.classifier, m.timeout
	return func() tea.Msg {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		start := time.Now()
		v, err := classifier.Check(ctx, t.Text)
		return verdictMsg{ticket: t, verdict: v, err: err, took: time.Since(start)}
	}
}

func (m *Model) settle(msg verdictMsg) {
	log := m.log.With().Str("message", msg.ticket.MessageID).Logger()

	var err error
	if msg.err != nil {
		log.Warn().Err(msg.err).Dur("took", msg.took).Msg("moderation call failed")
		err = m.session.Fail(msg.ticket)
	} else {
		log.Debug().Bool("flagged", msg.verdict.Flagged).Dur("took", msg.took).Msg("moderation verdict")
		err = m.session.Resolve(msg.ticket, msg.verdict)
	}
	if err != nil {
		log.Error().Err(err).Msg("apply moderation result")
	}
	m.refresh()
}

// refresh re-fills the viewport and scrolls to the newest row when the
// history changed.
func (m *Model) refresh() {
	v := m.session.Render()
	m.viewport.SetContent(renderRows(v, m.width))
	if v.Revision != m.revision {
		m.revision = v.Revision
		m.viewport.GotoBottom()
	}
}

func (m Model) View() string {
	v := m.session.Render()

	header := lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Width(m.width).Render(chat.Title),
		subtitleStyle.Width(m.width).Padding(0, 1).Render(chat.Subtitle),
	)

	status := ""
	if v.Pending {
		status = pendingStyle.Render("checking message...")
	}

	footer := footerStyle.Render(chat.ProtectionLabel + "  ·  " + v.FooterText())

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		status,
		m.input.View(),
		footer,
	)
}

// Session returns the driven session.
func (m Model) Session() *chat.Session {
	return m.session
}

func renderRows(v chat.View, width int) string {
	if v.Welcome {
		return lipgloss.Place(width, 4, lipgloss.Center, lipgloss.Center,
			lipgloss.JoinVertical(lipgloss.Center,
				welcomeTitleStyle.Render(chat.WelcomeTitle),
				welcomeTextStyle.Render(chat.WelcomeSubtitle),
			))
	}

	bubbleWidth := max(10, width*3/4)
	lines := make([]string, 0, len(v.Rows))
	for _, row := range v.Rows {
		var bubble string
		switch {
		case row.Hidden:
			bubble = wrap(hiddenBubbleStyle, row.Text, bubbleWidth)
		case row.Align == chat.AlignRight:
			bubble = wrap(selfBubbleStyle, row.Text, bubbleWidth) + " " + timestampStyle.Render(row.SentAt)
		default:
			bubble = wrap(partnerBubbleStyle, row.Text, bubbleWidth) + " " + timestampStyle.Render(row.SentAt)
		}

		align := lipgloss.Left
		if row.Align == chat.AlignRight {
			align = lipgloss.Right
		}
		lines = append(lines, lipgloss.NewStyle().Width(width).Align(align).Render(bubble))
	}
	return strings.Join(lines, "\n")
}

// wrap renders text in style, wrapping it at width columns when it is longer.
func wrap(style lipgloss.Style, text string, width int) string {
	if lipgloss.Width(text) > width {
		style = style.Width(width)
	}
	return style.Render(text)
}

// Run starts the terminal widget and blocks until the user quits or ctx ends.
func Run(ctx context.Context, m Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanchat/cleanchat/internal/chat"
	"github.com/cleanchat/cleanchat/internal/moderation"
)

type stubClassifier struct {
	calls []string
	err   error
}

func (s *stubClassifier) Check(_ context.Context, text string) (moderation.Verdict, error) {
	s.calls = append(s.calls, text)
	if s.err != nil {
		return moderation.Verdict{}, s.err
	}
	return moderation.Verdict{Flagged: strings.Contains(text, "idiot")}, nil
}

func newModel(c moderation.Classifier) Model {
	s := chat.NewSession(chat.WithClock(func() time.Time {
		return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	}))
	return New(context.Background(), s, c)
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func pressEnter(t *testing.T, m Model) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

// settle runs the moderation command and feeds its result back.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	_, ok := msg.(verdictMsg)
	require.True(t, ok, "expected verdictMsg, got %T", msg)
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestWelcome(t *testing.T) {
	m := newModel(&stubClassifier{})
	out := m.View()
	assert.Contains(t, out, chat.Title)
	assert.Contains(t, out, chat.WelcomeTitle)
	assert.Contains(t, out, "0 messages filtered")
}

func TestCleanMessage(t *testing.T) {
	c := &stubClassifier{}
	m := newModel(c)

	m = typeText(t, m, "hello")
	assert.Equal(t, "hello", m.Session().Draft())

	m, cmd := pressEnter(t, m)
	assert.True(t, m.Session().Pending())
	assert.Equal(t, "", m.input.Value())

	m = settle(t, m, cmd)
	assert.Equal(t, []string{"hello"}, c.calls)
	assert.False(t, m.Session().Pending())

	out := m.View()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "09:30 AM")
	assert.Contains(t, out, "0 messages filtered")
}

func TestToxicMessage(t *testing.T) {
	m := newModel(&stubClassifier{})

	m = typeText(t, m, "you are an idiot")
	m, cmd := pressEnter(t, m)
	m = settle(t, m, cmd)

	out := m.View()
	assert.NotContains(t, out, "idiot")
	assert.Contains(t, out, "Message hidden due to toxic content")
	assert.Contains(t, out, "1 messages filtered")
}

func TestWhitespaceIsIgnored(t *testing.T) {
	c := &stubClassifier{}
	m := newModel(c)

	m = typeText(t, m, "   ")
	m, cmd := pressEnter(t, m)
	assert.Nil(t, cmd)
	assert.Equal(t, 0, m.Session().Len())
	assert.Empty(t, c.calls)
}

func TestEnterWhilePending(t *testing.T) {
	m := newModel(&stubClassifier{})

	m = typeText(t, m, "first")
	m, first := pressEnter(t, m)

	m = typeText(t, m, "second")
	m, cmd := pressEnter(t, m)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, m.Session().Len())
	assert.Equal(t, "second", m.Session().Draft())

	m = settle(t, m, first)
	assert.True(t, m.Session().CanSubmit())
}

func TestFailureKeepsMessage(t *testing.T) {
	m := newModel(&stubClassifier{err: errors.New("connection refused")})

	m = typeText(t, m, "hello")
	m, cmd := pressEnter(t, m)
	m = settle(t, m, cmd)

	assert.False(t, m.Session().Pending())
	assert.Contains(t, m.View(), "hello")
	assert.Contains(t, m.View(), "0 messages filtered")
}

func TestQuitKeys(t *testing.T) {
	for _, k := range []tea.KeyType{tea.KeyEsc, tea.KeyCtrlC} {
		m := newModel(&stubClassifier{})
		_, cmd := m.Update(tea.KeyMsg{Type: k})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	}
}

func TestWindowResize(t *testing.T) {
	m := newModel(&stubClassifier{})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(Model)
	assert.Equal(t, 100, m.viewport.Width)
	assert.Equal(t, 30-headerLines-inputLines-footerLines-2, m.viewport.Height)
}

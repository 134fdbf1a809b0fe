package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFilter(t *testing.T) {
	f := NewFilter()
	require.NotNil(t, f)
	require.NotZero(t, f.Terms())
}

func TestNewFilterWithTerms_Normalizes(t *testing.T) {
	f := NewFilterWithTerms([]string{"  BadWord ", "badword", "", "   "})
	assert.Equal(t, 1, f.Terms())
	assert.True(t, f.Check("badword").Flagged)
}

func TestCheck_Terms(t *testing.T) {
	f := NewFilterWithTerms([]string{"badword", "go die"})

	tests := []struct {
		name    string
		input   string
		flagged bool
		term    string
	}{
		{"exact match", "badword", true, "badword"},
		{"in sentence", "this is badword here", true, "badword"},
		{"case insensitive", "BADWORD", true, "badword"},
		{"mixed case", "BaDwOrD", true, "badword"},
		{"with punctuation", "hello, badword!", true, "badword"},
		{"substring", "mybadwording", true, "badword"},
		{"phrase", "just go die already", true, "go die"},
		{"phrase split", "go and die", false, ""},
		{"clean message", "hello world", false, ""},
		{"empty", "", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.Check(tt.input)
			assert.Equal(t, tt.flagged, res.Flagged, "Check(%q)", tt.input)
			assert.Equal(t, tt.term, res.Term, "Check(%q)", tt.input)
		})
	}
}

func TestCheck_Leetspeak(t *testing.T) {
	f := NewFilterWithTerms([]string{"badword", "offensive"})

	tests := []struct {
		name  string
		input string
	}{
		{"zero for o", "b@dw0rd"},
		{"at for a", "b@dword"},
		{"dollar for s", "off3n$ive"},
		{"one for i", "offens1ve"},
		{"exclaim for i", "offens!ve"},
		{"mixed leet", "0ff3n$!v3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, f.Check(tt.input).Flagged, "Check(%q)", tt.input)
		})
	}
}

func TestCheck_LongestTermWins(t *testing.T) {
	f := NewFilterWithTerms([]string{"chutiya", "chutiyapa"})
	assert.Equal(t, "chutiyapa", f.Check("kya chutiyapa hai").Term)
}

func TestCheck_DefaultList(t *testing.T) {
	f := NewFilter()

	for _, text := range []string{
		"you are an idiot",
		"tu pagal hai",
		"nin amman",
		"SHUT UP",
		"1d10t",
	} {
		assert.True(t, f.Check(text).Flagged, text)
	}

	for _, text := range []string{
		"hello",
		"hello, how are you?",
		"nice weather today",
		"I love programming",
		"let's talk about movies",
	} {
		assert.False(t, f.Check(text).Flagged, text)
	}
}

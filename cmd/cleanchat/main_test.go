package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanchat/cleanchat/internal/moderation"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-format", "json", "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestCheckCommand(t *testing.T) {
	var got moderation.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"final_flagged":true,"cuss_word_flagged":true}`))
	}))
	defer srv.Close()

	t.Setenv("MODERATION_ENDPOINT", srv.URL+"/api/check/")
	t.Setenv("MODERATION_TRANSPORT", "http")

	out, err := runCLI(t, "check", "you", "idiot")
	require.NoError(t, err)
	assert.Equal(t, "you idiot", got.Comment)
	assert.Contains(t, out, "final_flagged: true")
	assert.Contains(t, out, "cuss_word_flagged: true")
}

func TestCheckCommand_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	t.Setenv("MODERATION_ENDPOINT", srv.URL+"/api/check/")
	t.Setenv("MODERATION_TRANSPORT", "http")

	_, err := runCLI(t, "check", "hello")
	require.Error(t, err)
}

func TestRootRejectsBadTransport(t *testing.T) {
	t.Setenv("MODERATION_TRANSPORT", "carrier-pigeon")

	_, err := runCLI(t, "check", "hello")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "transport"))
}

func TestLogWriter_TUIFileIsClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tui.log")
	opts := &rootOptions{logFile: path}

	w, err := opts.logWriter("tui")
	require.NoError(t, err)
	_, err = w.Write([]byte("line\n"))
	require.NoError(t, err)

	f := opts.logOut
	require.NotNil(t, f)
	require.NoError(t, opts.closeLog())
	assert.Nil(t, opts.logOut)

	_, err = f.Write([]byte("late\n"))
	require.ErrorIs(t, err, os.ErrClosed)
	require.NoError(t, opts.closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}

func TestLogWriter_Defaults(t *testing.T) {
	opts := &rootOptions{}

	w, err := opts.logWriter("serve")
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, w)

	w, err = opts.logWriter("tui")
	require.NoError(t, err)
	assert.Equal(t, io.Discard, w)
	assert.Nil(t, opts.logOut)
}

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanchat/cleanchat/internal/moderation"
)

func TestMux(t *testing.T) {
	h := moderation.NewHandler(moderation.NewFilter(), zerolog.Nop())
	srv := httptest.NewServer(newMux(h))
	defer srv.Close()

	tests := []struct {
		comment string
		flagged bool
	}{
		{"hello", false},
		{"you are an idiot", true},
	}
	for _, tt := range tests {
		body, _ := json.Marshal(moderation.Request{Comment: tt.comment})
		resp, err := http.Post(srv.URL+"/api/check/", "application/json", bytes.NewReader(body))
		require.NoError(t, err)

		var out moderation.Response
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, tt.flagged, out.FinalFlagged, tt.comment)
		assert.Equal(t, tt.comment, out.Comment)
	}

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

package moderation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() *Handler {
	return NewHandler(NewFilter(), zerolog.Nop())
}

func TestHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		comment string
		flagged bool
	}{
		{"hello", false},
		{"you are an idiot", true},
		{"", false},
	}

	h := newTestHandler()
	for _, tt := range tests {
		t.Run(tt.comment, func(t *testing.T) {
			body, _ := json.Marshal(Request{Comment: tt.comment})
			req := httptest.NewRequest(http.MethodPost, "/api/check/", strings.NewReader(string(body)))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.comment, resp.Comment)
			assert.Equal(t, tt.flagged, resp.FinalFlagged)
			assert.Equal(t, tt.flagged, resp.CussWordFlagged)
			assert.False(t, resp.ModelFlagged)
		})
	}
}

func TestHandler_RejectsBadRequests(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/check/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/check/", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_EvaluateJSON(t *testing.T) {
	h := newTestHandler()

	v, err := DecodeVerdict(h.EvaluateJSON([]byte(`{"comment":"tu pagal hai"}`)))
	require.NoError(t, err)
	assert.True(t, v.Flagged)

	v, err = DecodeVerdict(h.EvaluateJSON([]byte(`garbage`)))
	require.NoError(t, err)
	assert.False(t, v.Flagged)
}

func TestHandler_WithHTTPClassifier(t *testing.T) {
	srv := httptest.NewServer(newTestHandler())
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL+"/api/check/", 0)
	v, err := c.Check(t.Context(), "you are an idiot")
	require.NoError(t, err)
	assert.True(t, v.Flagged)
	assert.True(t, v.KeywordFlagged)
}

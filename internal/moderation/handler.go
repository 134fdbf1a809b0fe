package moderation

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// maxRequestBytes caps the body the stand-in handler accepts.
const maxRequestBytes = 64 << 10

// Handler answers moderation calls with the keyword rule, in the reference
// service's response shape. It is a development stand-in, not a classifier.
type Handler struct {
	filter *Filter
	log    zerolog.Logger
}

// NewHandler returns a Handler backed by filter.
func NewHandler(filter *Filter, logger zerolog.Logger) *Handler {
	return &Handler{filter: filter, log: logger}
}

// Evaluate builds the response for a single comment.
func (h *Handler) Evaluate(comment string) Response {
	res := h.filter.Check(comment)
	if res.Flagged {
		h.log.Info().Str("term", res.Term).Int("len", len(comment)).Msg("flagged")
	} else {
		h.log.Debug().Int("len", len(comment)).Msg("clean")
	}
	return Response{
		Comment:         comment,
		ToxicityScores:  map[string]float64{},
		ModelFlagged:    false,
		CussWordFlagged: res.Flagged,
		FinalFlagged:    res.Flagged,
	}
}

// EvaluateJSON decodes a Request body and encodes the Response. It serves the
// NATS transport, where there is no status code to report a bad body with,
// so an undecodable body is evaluated as an empty comment.
func (h *Handler) EvaluateJSON(body []byte) []byte {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		h.log.Warn().Err(err).Msg("undecodable request")
	}
	out, err := json.Marshal(h.Evaluate(req.Comment))
	if err != nil {
		h.log.Error().Err(err).Msg("encode response")
		return []byte(`{"final_flagged":false}`)
	}
	return out
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	writeJSON(w, http.StatusOK, h.Evaluate(req.Comment))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

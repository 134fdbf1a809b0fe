package moderation

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// Request is the body of a moderation call.
type Request struct {
	Comment string `json:"comment"`
}

// Response is the full answer of the reference moderation service. Only
// FinalFlagged is part of the contract; the rest is informational.
type Response struct {
	Comment         string             `json:"comment"`
	ToxicityScores  map[string]float64 `json:"toxicity_scores"`
	ModelFlagged    bool               `json:"model_flagged"`
	CussWordFlagged bool               `json:"cuss_word_flagged"`
	FinalFlagged    bool               `json:"final_flagged"`
}

// Verdict is what a classifier hands back to the widget.
type Verdict struct {
	Flagged bool

	// Best-effort extras, used for debug logging only.
	Scores         map[string]float64
	ModelFlagged   bool
	KeywordFlagged bool
}

// Classifier issues one moderation call for text.
type Classifier interface {
	Check(ctx context.Context, text string) (Verdict, error)
}

// DecodeVerdict parses a moderation response body. A missing final_flagged
// field, or a JSON null body, decodes as not flagged. Invalid JSON, a body of
// another JSON type, or a final_flagged that is not a boolean is an error.
// Other fields never fail the decode.
func DecodeVerdict(body []byte) (Verdict, error) {
	var head struct {
		FinalFlagged bool `json:"final_flagged"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return Verdict{}, errors.Wrap(err, "moderation: malformed response")
	}

	v := Verdict{Flagged: head.FinalFlagged}

	var extra struct {
		ToxicityScores  map[string]float64 `json:"toxicity_scores"`
		ModelFlagged    bool               `json:"model_flagged"`
		CussWordFlagged bool               `json:"cuss_word_flagged"`
	}
	if err := json.Unmarshal(body, &extra); err == nil {
		v.Scores = extra.ToxicityScores
		v.ModelFlagged = extra.ModelFlagged
		v.KeywordFlagged = extra.CussWordFlagged
	}
	return v, nil
}

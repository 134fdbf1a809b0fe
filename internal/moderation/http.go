package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// DefaultEndpoint is where the reference moderation service listens.
const DefaultEndpoint = "http://127.0.0.1:8000/api/check/"

// maxResponseBytes caps how much of a moderation response is read.
const maxResponseBytes = 1 << 20

// ErrStatus is returned when the moderation service answers with a non-2xx
// status code.
var ErrStatus = errors.New("moderation: unexpected status")

// HTTPClassifier posts {"comment": text} to a fixed endpoint.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClassifier returns a classifier for endpoint. A zero timeout means
// calls are only bounded by the caller's context.
func NewHTTPClassifier(endpoint string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the configured moderation URL.
func (c *HTTPClassifier) Endpoint() string {
	return c.endpoint
}

// Check performs a single POST. There are no retries.
func (c *HTTPClassifier) Check(ctx context.Context, text string) (Verdict, error) {
	body, err := json.Marshal(Request{Comment: text})
	if err != nil {
		return Verdict{}, errors.Wrap(err, "moderation: encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, errors.Wrap(err, "moderation: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Verdict{}, errors.Wrapf(err, "moderation: post %s", c.endpoint)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Verdict{}, errors.Wrap(err, "moderation: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Verdict{}, errors.Wrapf(ErrStatus, "%s returned %d", c.endpoint, resp.StatusCode)
	}

	return DecodeVerdict(data)
}

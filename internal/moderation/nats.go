package moderation

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// DefaultSubject is the NATS subject moderation requests are sent on.
const DefaultSubject = "moderation.check"

// Requester sends a request and waits for the single reply.
type Requester interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

// NATSClassifier sends the same JSON body as the HTTP transport as a NATS
// request and expects the same JSON verdict as the reply.
type NATSClassifier struct {
	requester Requester
	subject   string
}

// NewNATSClassifier returns a classifier that requests on subject.
func NewNATSClassifier(requester Requester, subject string) *NATSClassifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSClassifier{requester: requester, subject: subject}
}

// Subject returns the NATS subject requests go to.
func (c *NATSClassifier) Subject() string {
	return c.subject
}

// Check performs one request/reply round trip.
func (c *NATSClassifier) Check(ctx context.Context, text string) (Verdict, error) {
	body, err := json.Marshal(Request{Comment: text})
	if err != nil {
		return Verdict{}, errors.Wrap(err, "moderation: encode request")
	}

	reply, err := c.requester.Request(ctx, c.subject, body)
	if err != nil {
		return Verdict{}, errors.Wrapf(err, "moderation: request on %s", c.subject)
	}
	return DecodeVerdict(reply)
}

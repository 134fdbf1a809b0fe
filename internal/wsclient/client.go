// Package wsclient is a websocket client for the web widget. It connects with
// gobwas/ws (the same library the server uses), captures the session id from
// the session_created handshake and hands every other frame to the caller in
// arrival order. The probe command and the server tests use it.
package wsclient

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/pkg/errors"

	"github.com/cleanchat/cleanchat/internal/chat"
	"github.com/cleanchat/cleanchat/internal/protocol"
)

// ErrClosed is returned when the connection ends while waiting for a frame.
var ErrClosed = errors.New("wsclient: connection closed")

// Frame is one server frame.
type Frame struct {
	Type string
	Raw  json.RawMessage
}

// Decode unmarshals the frame into v.
func (f Frame) Decode(v interface{}) error {
	return errors.Wrapf(json.Unmarshal(f.Raw, v), "wsclient: decode %q", f.Type)
}

// Metrics tracks per-connection timing.
type Metrics struct {
	ConnectLatency   time.Duration
	MessagesReceived int
	MessagesSent     int
}

type readWriter struct {
	io.Reader
	io.Writer
}

// Client is a single websocket connection to the widget server.
type Client struct {
	conn      net.Conn
	rw        io.ReadWriter
	mu        sync.Mutex
	metrics   Metrics
	sessionID string
	maxDraft  int
	created   chan struct{}
	frames    chan Frame
	done      chan struct{}
	closeOnce sync.Once
}

// New dials url and starts reading frames in the background.
func New(ctx context.Context, url string) (*Client, error) {
	start := time.Now()
	conn, br, _, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "wsclient: dial %s", url)
	}

	// Frames sent right after the handshake may already sit in br.
	var src io.Reader = conn
	if br != nil {
		src = io.MultiReader(br, conn)
	}

	c := &Client{
		conn:    conn,
		rw:      readWriter{src, conn},
		created: make(chan struct{}),
		frames:  make(chan Frame, 64),
		done:    make(chan struct{}),
	}
	c.metrics.ConnectLatency = time.Since(start)

	go c.readLoop()

	return c, nil
}

// Send writes msg as a JSON text frame. It is goroutine-safe.
func (c *Client) Send(msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "wsclient: marshal")
	}
	return c.SendRaw(data)
}

// SendRaw writes data as a text frame without validating it.
func (c *Client) SendRaw(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.MessagesSent++
	return errors.Wrap(wsutil.WriteClientMessage(c.conn, ws.OpText, data), "wsclient: write")
}

// SetDraft replaces the draft on the server.
func (c *Client) SetDraft(text string) error {
	return c.Send(protocol.DraftMsg{Type: protocol.TypeDraft, Text: text})
}

// Submit sends the current draft.
func (c *Client) Submit() error {
	return c.Send(protocol.SendMsg{Type: protocol.TypeSend})
}

// SubmitText replaces the draft with text and sends it.
func (c *Client) SubmitText(text string) error {
	return c.Send(protocol.SendMsg{Type: protocol.TypeSend, Text: &text})
}

// WaitForSession blocks until session_created has arrived and returns the
// session id.
func (c *Client) WaitForSession(ctx context.Context) (string, error) {
	select {
	case <-c.created:
		return c.sessionID, nil
	case <-c.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// MaxDraftChars returns the bound announced by the server, or 0 before the
// handshake.
func (c *Client) MaxDraftChars() int {
	select {
	case <-c.created:
		return c.maxDraft
	default:
		return 0
	}
}

// Next returns the next frame other than session_created.
func (c *Client) Next(ctx context.Context) (Frame, error) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return Frame{}, ErrClosed
		}
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// WaitFor skips frames until one of type msgType arrives.
func (c *Client) WaitFor(ctx context.Context, msgType string) (Frame, error) {
	for {
		f, err := c.Next(ctx)
		if err != nil {
			return Frame{}, err
		}
		if f.Type == msgType {
			return f, nil
		}
	}
}

// WaitForView skips frames until a view satisfying match arrives. A nil match
// accepts the first view.
func (c *Client) WaitForView(ctx context.Context, match func(chat.View) bool) (chat.View, error) {
	for {
		f, err := c.WaitFor(ctx, protocol.TypeView)
		if err != nil {
			return chat.View{}, err
		}
		var msg protocol.ViewMsg
		if err := f.Decode(&msg); err != nil {
			return chat.View{}, err
		}
		if match == nil || match(msg.View) {
			return msg.View, nil
		}
	}
}

// Close closes the connection and stops the read loop. It is safe to call
// multiple times.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// Done is closed once Close has been called.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// GetMetrics returns a copy of the client's metrics.
func (c *Client) GetMetrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

func (c *Client) readLoop() {
	defer close(c.frames)

	for {
		data, err := wsutil.ReadServerText(c.rw)
		if err != nil {
			return
		}

		c.mu.Lock()
		c.metrics.MessagesReceived++
		c.mu.Unlock()

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		if env.Type == protocol.TypeSessionCreated {
			var msg protocol.SessionCreatedMsg
			if err := json.Unmarshal(data, &msg); err == nil && c.sessionID == "" {
				c.sessionID = msg.SessionID
				c.maxDraft = msg.MaxDraftChars
				close(c.created)
			}
			continue
		}

		select {
		case c.frames <- Frame{Type: env.Type, Raw: env.Raw}:
		case <-c.done:
			return
		}
	}
}

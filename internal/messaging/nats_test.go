package messaging

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// newTestClient connects to a local NATS server. Tests that call this helper
// require a running NATS on NATS_URL or the default URL.
func newTestClient(t *testing.T) *NATSClient {
	t.Helper()
	config := DefaultNATSConfig()
	if v := os.Getenv("NATS_URL"); v != "" {
		config.URL = v
	}
	config.MaxReconnects = 0

	c, err := NewNATSClient(config, zerolog.Nop())
	if err != nil {
		t.Skipf("nats not available: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestRequestReply(t *testing.T) {
	c := newTestClient(t)
	subject := "cleanchat.test.echo"

	require.NoError(t, c.Reply(subject, func(data []byte) []byte {
		return append([]byte("echo:"), data...)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, err := c.Request(ctx, subject, []byte("hi"))
	require.NoError(t, err)
	require.Equal(t, "echo:hi", string(reply))

	require.NoError(t, c.Unsubscribe(subject))
	require.Error(t, c.Unsubscribe(subject))
}

func TestRequest_NoResponders(t *testing.T) {
	c := newTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := c.Request(ctx, "cleanchat.test.nobody", []byte("hi"))
	require.Error(t, err)
}

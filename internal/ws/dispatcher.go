package ws

import (
	"github.com/rs/zerolog"

	"github.com/cleanchat/cleanchat/internal/protocol"
)

// MessageHandler is the callback signature for handling a parsed client
// message. The msg parameter is the concrete struct returned by
// protocol.ParseClientMessage (e.g., protocol.DraftMsg, protocol.SendMsg).
type MessageHandler func(conn *Connection, msg interface{})

// MessageDispatcher routes incoming WebSocket messages to registered handlers
// based on the message type. It answers ping internally and sends structured
// error responses for malformed or unsupported messages.
type MessageDispatcher struct {
	handlers map[string]MessageHandler
	log      zerolog.Logger
}

// NewMessageDispatcher creates an empty MessageDispatcher.
func NewMessageDispatcher(logger zerolog.Logger) *MessageDispatcher {
	return &MessageDispatcher{
		handlers: make(map[string]MessageHandler),
		log:      logger,
	}
}

// Register associates a MessageHandler with a message type. If a handler was
// already registered for the given type, it is silently replaced.
func (d *MessageDispatcher) Register(msgType string, handler MessageHandler) {
	d.handlers[msgType] = handler
}

// Dispatch parses the raw bytes into a typed message, handles ping, and routes
// all other types to the registered handler. Parse errors and unregistered
// types result in an error frame; the session itself is unaffected.
func (d *MessageDispatcher) Dispatch(conn *Connection, data []byte) {
	msgType, msg, err := protocol.ParseClientMessage(data)
	if err != nil {
		d.log.Debug().Err(err).Str("session", conn.ID).Msg("dispatch parse error")
		sendError(d.log, conn, protocol.CodeBadMessage, "invalid message format")
		return
	}

	if msgType == protocol.TypePing {
		d.sendPong(conn)
		return
	}

	handler, ok := d.handlers[msgType]
	if !ok {
		d.log.Debug().Str("type", msgType).Str("session", conn.ID).Msg("unsupported message type")
		sendError(d.log, conn, protocol.CodeBadMessage, "unsupported message type")
		return
	}

	handler(conn, msg)
}

func (d *MessageDispatcher) sendPong(conn *Connection) {
	data, err := protocol.NewServerMessage(protocol.TypePong, protocol.PongMsg{})
	if err != nil {
		d.log.Error().Err(err).Str("session", conn.ID).Msg("build pong")
		return
	}
	if err := conn.WriteMessage(data); err != nil {
		d.log.Debug().Err(err).Str("session", conn.ID).Msg("send pong")
	}
}

// sendError writes an error frame. Failures are logged, not propagated.
func sendError(log zerolog.Logger, conn *Connection, code, message string) {
	data, err := protocol.NewError(code, message)
	if err != nil {
		log.Error().Err(err).Str("session", conn.ID).Msg("build error frame")
		return
	}
	if err := conn.WriteMessage(data); err != nil {
		log.Debug().Err(err).Str("session", conn.ID).Msg("send error frame")
	}
}

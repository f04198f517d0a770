package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nexushq/nexus/internal/notifications"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10

	defaultBufferSize = 64
)

var (
	// ErrConnectionClosed is returned when sending to a closed connection.
	ErrConnectionClosed = errors.New("realtime: connection closed")
	// ErrSlowConsumer is returned when the outbound buffer is full. The
	// connection is closed when it happens.
	ErrSlowConsumer = errors.New("realtime: outbound buffer full")
)

// inbound is a client to server event. It uses the same envelope as
// notifications.Event.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// connection is one websocket session. It implements
// notifications.WaitingChannel; Send never blocks, SendWait waits for buffer
// space and Close is idempotent.
type connection struct {
	socket *websocket.Conn
	userID string
	send   chan notifications.Event
	done   chan struct{}
	once   sync.Once
	log    *zap.Logger
}

var _ notifications.WaitingChannel = (*connection)(nil)

func newConnection(socket *websocket.Conn, userID string, buffer int, log *zap.Logger) *connection {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	return &connection{
		socket: socket,
		userID: userID,
		send:   make(chan notifications.Event, buffer),
		done:   make(chan struct{}),
		log:    log.With(zap.String("user_id", userID)),
	}
}

func (c *connection) Send(event notifications.Event) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- event:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		c.log.Warn("dropping backpressure client", zap.String("event", event.Name))
		_ = c.Close()
		return ErrSlowConsumer
	}
}

func (c *connection) SendWait(ctx context.Context, event notifications.Event) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- event:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *connection) Close() error {
	c.once.Do(func() {
		close(c.done)
	})
	return nil
}

// readLoop decodes inbound events and hands them to handle until the socket
// fails or the connection is closed.
func (c *connection) readLoop(handle func(inbound)) {
	defer c.Close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Debug("unexpected websocket close", zap.Error(err))
			}
			return
		}
		if len(payload) == 0 {
			continue
		}

		var msg inbound
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.log.Debug("discarding malformed frame", zap.Int("bytes", len(payload)), zap.Error(err))
			continue
		}
		handle(msg)
	}
}

func (c *connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
		_ = c.socket.Close()
	}()

	for {
		select {
		case event := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

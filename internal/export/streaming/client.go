package streaming

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/robinstudios/dot/internal/common/logger"
	"github.com/robinstudios/dot/internal/events/bus"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames
	maxMessageSize = 4 * 1024
)

type frame struct {
	data  []byte
	final bool
}

// Client is one websocket watching one export job.
type Client struct {
	ID        string
	jobID     string
	conn      *websocket.Conn
	send      chan frame
	done      chan struct{}
	closeOnce sync.Once
	logger    *logger.Logger
}

func newClient(id, jobID string, conn *websocket.Conn, log *logger.Logger) *Client {
	return &Client{
		ID:     id,
		jobID:  jobID,
		conn:   conn,
		send:   make(chan frame, 64),
		done:   make(chan struct{}),
		logger: log.WithFields(zap.String("client_id", id), zap.String("job_id", jobID)),
	}
}

// enqueue queues msg for writing. It blocks while the send buffer is full so
// progress frames are never dropped, and gives up once the client is gone.
func (c *Client) enqueue(msg *Message, final bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}
	select {
	case c.send <- frame{data: data, final: final}:
	case <-c.done:
	}
}

func (c *Client) stop() {
	c.closeOnce.Do(func() { close(c.done) })
}

// readPump drains control frames until the peer goes away.
func (c *Client) readPump() {
	defer c.stop()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump writes queued frames and pings. After the final frame the
// connection is closed normally.
func (c *Client) writePump(sub bus.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.stop()
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Warn("Failed to unsubscribe", zap.Error(err))
		}
		_ = c.conn.Close()
		c.logger.Debug("WebSocket stream closed")
	}()

	for {
		select {
		case f := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, f.data); err != nil {
				return
			}
			if f.final {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "export job finished"),
					time.Now().Add(writeWait))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

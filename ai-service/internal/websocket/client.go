package websocket

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/pennywise/finance/shared/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Client is one authenticated websocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan Frame // owned by the hub, closed on unregister
	reply  chan Frame // answers to this client's own frames

	mu     sync.RWMutex
	topics map[string]struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan Frame, 64),
		reply:  make(chan Frame, 8),
		topics: make(map[string]struct{}),
	}
}

// Start registers the client and runs its read and write pumps. It returns
// false if the hub has stopped.
func (c *Client) Start() bool {
	select {
	case c.hub.register <- c:
	case <-c.hub.done:
		return false
	}
	go c.writePump()
	go c.readPump()
	return true
}

func (c *Client) subscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.topics[topic]
	return ok
}

// handle answers one client frame.
func (c *Client) handle(frame Frame) Frame {
	switch frame.Type {
	case FramePing:
		return Frame{Type: FramePong}
	case FrameSubscribe:
		owner, ok := UserOf(frame.Topic)
		if !ok {
			return Frame{Type: FrameError, Topic: frame.Topic, Error: "unknown topic"}
		}
		if owner != c.userID {
			return Frame{Type: FrameError, Topic: frame.Topic, Error: "forbidden"}
		}
		c.mu.Lock()
		c.topics[frame.Topic] = struct{}{}
		c.mu.Unlock()
		return Frame{Type: FrameSubscribed, Topic: frame.Topic}
	case FrameUnsubscribe:
		c.mu.Lock()
		delete(c.topics, frame.Topic)
		c.mu.Unlock()
		return Frame{Type: FrameUnsubscribe, Topic: frame.Topic}
	default:
		return Frame{Type: FrameError, Error: "unsupported frame type"}
	}
}

func (c *Client) respond(frame Frame) {
	select {
	case c.reply <- frame:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn().Err(err).Str("user", c.userID).Msg("unexpected websocket close")
			}
			return
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.respond(Frame{Type: FrameError, Error: "malformed frame"})
			continue
		}
		c.respond(c.handle(frame))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(frame); err != nil {
				return
			}

		case frame := <-c.reply:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.write(frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		logging.Error().Err(err).Str("type", frame.Type).Msg("failed to encode websocket frame")
		return nil
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Package websocket pushes per-user notifications to browser clients.
//
// Each user has one topic, /topic/analysis/{userId}. A connection may only
// subscribe to its own user's topic; the hub delivers a published frame to
// every connection subscribed to the frame's topic.
package websocket

import (
	"context"
	"strings"
	"sync"

	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/metrics"
)

const TopicPrefix = "/topic/analysis/"

// Frame types exchanged with clients.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameSubscribed  = "subscribed"
	FramePing        = "ping"
	FramePong        = "pong"
	FrameAnalysis    = "analysis"
	FrameError       = "error"
)

// Frame is the JSON envelope for every message in either direction.
type Frame struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// TopicFor returns the analysis topic of a user.
func TopicFor(userID string) string {
	return TopicPrefix + userID
}

// UserOf returns the user a topic belongs to.
func UserOf(topic string) (string, bool) {
	userID, ok := strings.CutPrefix(topic, TopicPrefix)
	return userID, ok && userID != ""
}

// Hub tracks live clients and fans published frames out to subscribers.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan Frame
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Frame, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Serve runs the hub until ctx is cancelled, then closes every client.
// It satisfies suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	log := logging.WithComponent("websocket-hub")
	for {
		select {
		case <-ctx.Done():
			h.stopOnce.Do(func() { close(h.done) })
			h.mu.Lock()
			n := len(h.clients)
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			metrics.WSConnections.Set(0)
			log.Info().Int("clients", n).Msg("websocket hub stopped")
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WSConnections.Set(float64(n))
			log.Debug().Str("user", c.userID).Int("clients", n).Msg("websocket client connected")

		case c := <-h.unregister:
			h.remove(c)

		case frame := <-h.broadcast:
			h.deliver(frame)
		}
	}
}

// Publish queues a frame for delivery to subscribers of topic. It never
// blocks; if the queue is full the frame is dropped and false returned.
func (h *Hub) Publish(topic, frameType string, data any) bool {
	select {
	case h.broadcast <- Frame{Type: frameType, Topic: topic, Data: data}:
		return true
	default:
		logging.Warn().Str("topic", topic).Msg("websocket broadcast queue full, frame dropped")
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		metrics.WSConnections.Set(float64(n))
	}
}

func (h *Hub) deliver(frame Frame) {
	h.mu.RLock()
	var slow []*Client
	for c := range h.clients {
		if !c.subscribed(frame.Topic) {
			continue
		}
		select {
		case c.send <- frame:
			metrics.WSMessagesSent.Inc()
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	// A client that cannot keep up is disconnected rather than allowed to
	// hold frames for everyone else.
	for _, c := range slow {
		logging.Warn().Str("user", c.userID).Msg("websocket client too slow, disconnecting")
		h.remove(c)
	}
}

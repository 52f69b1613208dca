package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/pennywise/finance/shared/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.MustInitJWTSecret("test-secret-0123456789", time.Hour)
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Serve(ctx) }()

	r := gin.New()
	r.GET("/ws", NewHandler(hub, []string{"*"}).ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	token, err := middleware.GenerateToken(userID, "name-"+userID, "user")
	if err != nil {
		t.Fatal(err)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame Frame) {
	t.Helper()
	data, _ := json.Marshal(frame)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatal(err)
	}
}

func receive(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return frame
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTopicHelpers(t *testing.T) {
	if TopicFor("usr-1") != "/topic/analysis/usr-1" {
		t.Errorf("TopicFor = %s", TopicFor("usr-1"))
	}
	if u, ok := UserOf("/topic/analysis/usr-1"); !ok || u != "usr-1" {
		t.Errorf("UserOf = %q, %v", u, ok)
	}
	for _, bad := range []string{"/topic/analysis/", "/topic/other/usr-1", ""} {
		if _, ok := UserOf(bad); ok {
			t.Errorf("UserOf(%q) accepted", bad)
		}
	}
}

func TestHandshakeRequiresToken(t *testing.T) {
	_, srv := startHub(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil || resp == nil || resp.StatusCode != 401 {
		t.Errorf("dial without token: err=%v resp=%v", err, resp)
	}
	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	if err == nil || resp == nil || resp.StatusCode != 401 {
		t.Errorf("dial with bad token: err=%v resp=%v", err, resp)
	}
}

func TestPingPong(t *testing.T) {
	_, srv := startHub(t)
	conn := dial(t, srv, "usr-1")

	send(t, conn, Frame{Type: FramePing})
	if f := receive(t, conn); f.Type != FramePong {
		t.Errorf("reply = %+v", f)
	}
}

func TestSubscribeOwnTopicOnly(t *testing.T) {
	_, srv := startHub(t)
	conn := dial(t, srv, "usr-1")

	send(t, conn, Frame{Type: FrameSubscribe, Topic: TopicFor("usr-2")})
	if f := receive(t, conn); f.Type != FrameError || f.Error != "forbidden" {
		t.Errorf("foreign subscribe reply = %+v", f)
	}
	send(t, conn, Frame{Type: FrameSubscribe, Topic: "/topic/prices"})
	if f := receive(t, conn); f.Type != FrameError {
		t.Errorf("unknown topic reply = %+v", f)
	}
	send(t, conn, Frame{Type: FrameSubscribe, Topic: TopicFor("usr-1")})
	if f := receive(t, conn); f.Type != FrameSubscribed {
		t.Errorf("own subscribe reply = %+v", f)
	}
}

func TestPublishReachesSubscribersOnly(t *testing.T) {
	hub, srv := startHub(t)
	alice := dial(t, srv, "usr-alice")
	bob := dial(t, srv, "usr-bob")
	waitForClients(t, hub, 2)

	send(t, alice, Frame{Type: FrameSubscribe, Topic: TopicFor("usr-alice")})
	receive(t, alice)
	send(t, bob, Frame{Type: FrameSubscribe, Topic: TopicFor("usr-bob")})
	receive(t, bob)

	if !hub.Publish(TopicFor("usr-alice"), FrameAnalysis, map[string]string{"recordId": "rec-1"}) {
		t.Fatal("Publish dropped frame")
	}
	f := receive(t, alice)
	if f.Type != FrameAnalysis || f.Topic != TopicFor("usr-alice") {
		t.Errorf("alice got %+v", f)
	}
	if data, _ := f.Data.(map[string]any); data["recordId"] != "rec-1" {
		t.Errorf("data = %v", f.Data)
	}

	// Bob sees only his own pong, not Alice's analysis.
	send(t, bob, Frame{Type: FramePing})
	if f := receive(t, bob); f.Type != FramePong {
		t.Errorf("bob got %+v", f)
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	// Registration after shutdown must not block.
	c := &Client{hub: hub, send: make(chan Frame, 1), reply: make(chan Frame, 1), topics: map[string]struct{}{}}
	if c.Start() {
		t.Error("Start succeeded on a stopped hub")
	}
}

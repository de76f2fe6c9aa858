package chat_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"AProject/module/activity/model"
	"AProject/service/chat"
	"AProject/service/chat/handlers"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// memGateway is an in-memory storage gateway for socket-level tests.
type memGateway struct {
	mu     sync.Mutex
	access map[int64]map[int64]bool
	nextID int64
}

func newMemGateway() *memGateway {
	return &memGateway{access: make(map[int64]map[int64]bool), nextID: 1}
}

func (g *memGateway) grant(userID, activityID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.access[userID] == nil {
		g.access[userID] = make(map[int64]bool)
	}
	g.access[userID][activityID] = true
}

func (g *memGateway) CanUserAccessChat(ctx context.Context, userID, activityID int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.access[userID][activityID], nil
}

func (g *memGateway) CreateMessage(ctx context.Context, activityID, senderID int64, content string) (*model.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	return &model.Message{ID: g.nextID, CreatedAt: time.Now().UTC()}, nil
}

func (g *memGateway) RecentMessages(ctx context.Context, activityID int64, limit int64) ([]*model.ChatMessage, error) {
	return nil, nil
}

func (g *memGateway) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return &model.User{ID: userID, Username: fmt.Sprintf("user-%d", userID)}, nil
}

func startGateway(t *testing.T, gw chat.Gateway, conf chat.ServerConf) (*httptest.Server, *chat.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := chat.NewRegistry()
	bcast := chat.NewBroadcaster(reg, chat.NewFanout(2, 64), nil)
	disp := chat.NewDispatcher()
	srv := chat.NewServer("gw-test", conf, reg, disp, bcast, gw, nil)
	disp.Register(handlers.NewAuthHandler(srv))
	disp.Register(handlers.NewSubscribeHandler(srv))
	disp.Register(handlers.NewChatHandler(srv))

	r := gin.New()
	r.GET("/ws", srv.HandleWS)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, srv
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func sendJSON(t *testing.T, ws *websocket.Conn, v string) {
	t.Helper()
	if err := ws.WriteMessage(websocket.TextMessage, []byte(v)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readJSON(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return got
}

func TestSocketSessionFlow(t *testing.T) {
	gw := newMemGateway()
	gw.grant(1, 42)
	gw.grant(2, 42)
	ts, _ := startGateway(t, gw, chat.ServerConf{})

	host := dialWS(t, ts)
	guest := dialWS(t, ts)

	// auth both
	sendJSON(t, host, `{"type":"auth","userId":1}`)
	if ack := readJSON(t, host); ack["success"] != true {
		t.Fatalf("host auth ack = %v", ack)
	}
	sendJSON(t, guest, `{"type":"auth","userId":2}`)
	if ack := readJSON(t, guest); ack["success"] != true {
		t.Fatalf("guest auth ack = %v", ack)
	}

	// subscribe both; room history is empty
	sendJSON(t, host, `{"type":"subscribe","activityId":42}`)
	sub := readJSON(t, host)
	if sub["success"] != true {
		t.Fatalf("host subscribe = %v", sub)
	}
	if msgs, ok := sub["messages"].([]any); !ok || len(msgs) != 0 {
		t.Fatalf("host window = %v", sub["messages"])
	}
	sendJSON(t, guest, `{"type":"subscribe","activityId":42}`)
	if sub := readJSON(t, guest); sub["success"] != true {
		t.Fatalf("guest subscribe = %v", sub)
	}

	// host posts; both ends receive the enriched frame
	sendJSON(t, host, `{"type":"chat","activityId":42,"senderId":1,"content":"hello room"}`)
	for name, ws := range map[string]*websocket.Conn{"host": host, "guest": guest} {
		frame := readJSON(t, ws)
		if frame["type"] != "chat" || frame["content"] != "hello room" {
			t.Errorf("%s frame = %v", name, frame)
		}
		if frame["senderName"] != "user-1" || frame["senderId"] != float64(1) {
			t.Errorf("%s sender fields = %v", name, frame)
		}
	}
}

func TestSocketDisconnectCleansRegistry(t *testing.T) {
	gw := newMemGateway()
	gw.grant(1, 42)
	ts, srv := startGateway(t, gw, chat.ServerConf{})

	ws := dialWS(t, ts)
	sendJSON(t, ws, `{"type":"auth","userId":1}`)
	readJSON(t, ws)
	sendJSON(t, ws, `{"type":"subscribe","activityId":42}`)
	readJSON(t, ws)

	if got := srv.Reg().Len(); got != 1 {
		t.Fatalf("registry len = %d, want 1", got)
	}

	ws.Close()

	deadline := time.Now().Add(3 * time.Second)
	for srv.Reg().Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("registry still holds %d connections after close", srv.Reg().Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := len(srv.Reg().ListByRoom(42)); got != 0 {
		t.Fatalf("room index still holds %d entries", got)
	}
}

func waitRegistryEmpty(t *testing.T, srv *chat.Server, within time.Duration) {
	t.Helper()
	deadline := time.Now().Add(within)
	for srv.Reg().Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("registry still holds %d connection(s)", srv.Reg().Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSocketWriteFailureTearsDownConnection(t *testing.T) {
	gw := newMemGateway()
	gw.grant(1, 42)
	ts, srv := startGateway(t, gw, chat.ServerConf{
		SendQueueSize: 4,
		WriteDeadline: 50 * time.Millisecond,
	})

	ws := dialWS(t, ts)
	sendJSON(t, ws, `{"type":"auth","userId":1}`)
	readJSON(t, ws)
	sendJSON(t, ws, `{"type":"subscribe","activityId":42}`)
	readJSON(t, ws)

	// the peer stops reading; large broadcasts overrun the socket buffers
	// until a write misses its deadline, which must close the transport and
	// unwind the whole connection
	big := []byte(`{"type":"chat","content":"` + strings.Repeat("x", 512<<10) + `"}`)
	for i := 0; i < 100 && srv.Reg().Len() != 0; i++ {
		srv.Broadcast().BroadcastRoom(42, big)
		time.Sleep(20 * time.Millisecond)
	}

	waitRegistryEmpty(t, srv, 3*time.Second)
	if got := len(srv.Reg().ListByRoom(42)); got != 0 {
		t.Fatalf("room index still holds %d entries after writer death", got)
	}
}

func TestSocketSilentPeerReaped(t *testing.T) {
	gw := newMemGateway()
	gw.grant(1, 42)
	ts, srv := startGateway(t, gw, chat.ServerConf{
		PongWait: 200 * time.Millisecond,
	})

	ws := dialWS(t, ts)
	sendJSON(t, ws, `{"type":"auth","userId":1}`)
	readJSON(t, ws)
	if got := srv.Reg().Len(); got != 1 {
		t.Fatalf("registry len = %d, want 1", got)
	}

	// the client neither reads nor writes, so the server's pings go
	// unanswered and the pong deadline must reap the connection
	waitRegistryEmpty(t, srv, 3*time.Second)
}

func TestSocketMalformedFrameIgnored(t *testing.T) {
	gw := newMemGateway()
	gw.grant(1, 42)
	ts, _ := startGateway(t, gw, chat.ServerConf{})

	ws := dialWS(t, ts)
	sendJSON(t, ws, `this is not json`)
	sendJSON(t, ws, `{"type":"mystery"}`)

	// connection survives malformed input; a valid frame still works
	sendJSON(t, ws, `{"type":"auth","userId":1}`)
	if ack := readJSON(t, ws); ack["success"] != true {
		t.Fatalf("auth after garbage = %v", ack)
	}
}

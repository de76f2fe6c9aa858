package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"AProject/module/activity/model"
	"AProject/service/chat"
)

// fakeGateway is an in-memory stand-in for the postgres/mongo store.
type fakeGateway struct {
	mu        sync.Mutex
	access    map[int64]map[int64]bool // userID -> activityID -> allowed
	users     map[int64]*model.User
	persisted []*model.Message
	contents  []string
	nextID    int64
	recent    []*model.ChatMessage
	accessErr error
	recentErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		access: make(map[int64]map[int64]bool),
		users:  make(map[int64]*model.User),
		nextID: 1000,
	}
}

func (g *fakeGateway) grant(userID, activityID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.access[userID] == nil {
		g.access[userID] = make(map[int64]bool)
	}
	g.access[userID][activityID] = true
}

func (g *fakeGateway) revoke(userID, activityID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.access[userID], activityID)
}

func (g *fakeGateway) CanUserAccessChat(ctx context.Context, userID, activityID int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.accessErr != nil {
		return false, g.accessErr
	}
	return g.access[userID][activityID], nil
}

func (g *fakeGateway) CreateMessage(ctx context.Context, activityID, senderID int64, content string) (*model.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	m := &model.Message{ID: g.nextID, CreatedAt: time.Now().UTC()}
	g.persisted = append(g.persisted, m)
	g.contents = append(g.contents, content)
	return m, nil
}

func (g *fakeGateway) RecentMessages(ctx context.Context, activityID int64, limit int64) ([]*model.ChatMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.recentErr != nil {
		return nil, g.recentErr
	}
	return g.recent, nil
}

func (g *fakeGateway) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if u, ok := g.users[userID]; ok {
		return u, nil
	}
	return &model.User{ID: userID}, nil
}

func (g *fakeGateway) persistCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.persisted)
}

func newTestServer(gw chat.Gateway) *chat.Server {
	reg := chat.NewRegistry()
	bcast := chat.NewBroadcaster(reg, chat.NewFanout(1, 16), nil)
	disp := chat.NewDispatcher()
	srv := chat.NewServer("gw-test", chat.ServerConf{}, reg, disp, bcast, gw, nil)
	disp.Register(NewAuthHandler(srv))
	disp.Register(NewSubscribeHandler(srv))
	disp.Register(NewChatHandler(srv))
	return srv
}

func dispatch(t *testing.T, srv *chat.Server, f *chat.Frame, c *chat.Client) {
	t.Helper()
	if err := srv.Disp().Dispatch(context.Background(), f, c); err != nil {
		t.Fatalf("dispatch %s: %v", f.Type, err)
	}
}

func mustFrame(t *testing.T, c *chat.Client) map[string]any {
	t.Helper()
	select {
	case raw := <-c.Send:
		var got map[string]any
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("unmarshal frame %s: %v", raw, err)
		}
		return got
	case <-time.After(2 * time.Second):
		t.Fatal("no frame within deadline")
		return nil
	}
}

func mustNoFrame(t *testing.T, c *chat.Client) {
	t.Helper()
	select {
	case raw := <-c.Send:
		t.Fatalf("unexpected frame: %s", raw)
	case <-time.After(100 * time.Millisecond):
	}
}

func connect(t *testing.T, srv *chat.Server, connID string, userID int64) *chat.Client {
	t.Helper()
	c := chat.NewClient(connID, nil, 16)
	dispatch(t, srv, &chat.Frame{Type: chat.FrameAuth, UserID: userID}, c)
	ack := mustFrame(t, c)
	if ack["type"] != "auth" || ack["success"] != true {
		t.Fatalf("auth ack = %v", ack)
	}
	return c
}

func TestAuthBindsIdentity(t *testing.T) {
	srv := newTestServer(newFakeGateway())
	c := connect(t, srv, "c1", 7)

	if !c.Authed || c.UserID != 7 {
		t.Fatalf("client after auth = authed=%v user=%d", c.Authed, c.UserID)
	}
	if got := len(srv.Reg().ListByUser(7)); got != 1 {
		t.Fatalf("registry ListByUser = %d, want 1", got)
	}
}

func TestReAuthIgnored(t *testing.T) {
	srv := newTestServer(newFakeGateway())
	c := connect(t, srv, "c1", 7)

	dispatch(t, srv, &chat.Frame{Type: chat.FrameAuth, UserID: 8}, c)
	mustNoFrame(t, c)
	if c.UserID != 7 {
		t.Fatalf("identity changed to %d after re-auth", c.UserID)
	}
}

func TestSubscribeApprovedGetsEmptyWindow(t *testing.T) {
	gw := newFakeGateway()
	gw.grant(7, 42)
	srv := newTestServer(gw)
	c := connect(t, srv, "c1", 7)

	dispatch(t, srv, &chat.Frame{Type: chat.FrameSubscribe, ActivityID: 42}, c)
	got := mustFrame(t, c)
	if got["type"] != "subscribe" || got["success"] != true {
		t.Fatalf("frame = %v", got)
	}
	msgs, ok := got["messages"].([]any)
	if !ok || len(msgs) != 0 {
		t.Fatalf("messages = %v, want empty array", got["messages"])
	}
	if !c.InRoom(42) {
		t.Error("client not marked in room")
	}
}

func TestSubscribeDeniedGetsFailureFrame(t *testing.T) {
	srv := newTestServer(newFakeGateway()) // no grants at all
	c := connect(t, srv, "c1", 9)

	dispatch(t, srv, &chat.Frame{Type: chat.FrameSubscribe, ActivityID: 42}, c)
	got := mustFrame(t, c)
	if got["success"] != false || got["error"] != "access denied" {
		t.Fatalf("frame = %v", got)
	}
	if got := len(srv.Reg().ListByRoom(42)); got != 0 {
		t.Fatalf("denied client ended up in room index (%d entries)", got)
	}
}

func TestSubscribeUnauthenticatedDropped(t *testing.T) {
	srv := newTestServer(newFakeGateway())
	c := chat.NewClient("c1", nil, 16) // never authed

	dispatch(t, srv, &chat.Frame{Type: chat.FrameSubscribe, ActivityID: 42}, c)
	mustNoFrame(t, c)
}

func TestSubscribeRecentWindowErrorStillSucceeds(t *testing.T) {
	gw := newFakeGateway()
	gw.grant(7, 42)
	gw.recentErr = context.DeadlineExceeded
	srv := newTestServer(gw)
	c := connect(t, srv, "c1", 7)

	dispatch(t, srv, &chat.Frame{Type: chat.FrameSubscribe, ActivityID: 42}, c)
	got := mustFrame(t, c)
	if got["success"] != true {
		t.Fatalf("frame = %v, want success with empty window", got)
	}
	if msgs, ok := got["messages"].([]any); !ok || len(msgs) != 0 {
		t.Fatalf("messages = %v", got["messages"])
	}
}

func TestChatRoundTrip(t *testing.T) {
	gw := newFakeGateway()
	gw.grant(1, 42)
	gw.grant(2, 42)
	gw.users[1] = &model.User{ID: 1, Username: "alice"}
	srv := newTestServer(gw)

	host := connect(t, srv, "host", 1)
	guest := connect(t, srv, "guest", 2)
	dispatch(t, srv, &chat.Frame{Type: chat.FrameSubscribe, ActivityID: 42}, host)
	mustFrame(t, host)
	dispatch(t, srv, &chat.Frame{Type: chat.FrameSubscribe, ActivityID: 42}, guest)
	mustFrame(t, guest)

	dispatch(t, srv, &chat.Frame{Type: chat.FrameChat, ActivityID: 42, SenderID: 1, Content: "hello"}, host)

	if got := gw.persistCount(); got != 1 {
		t.Fatalf("persisted %d messages, want 1", got)
	}
	for _, c := range []*chat.Client{host, guest} {
		got := mustFrame(t, c)
		if got["type"] != "chat" || got["content"] != "hello" || got["senderName"] != "alice" {
			t.Errorf("conn %s frame = %v", c.ConnID, got)
		}
		if got["senderId"] != float64(1) || got["activityId"] != float64(42) {
			t.Errorf("conn %s ids = %v", c.ConnID, got)
		}
		mustNoFrame(t, c) // exactly one frame per subscriber
	}
}

func TestChatRevokedAccessSilentDrop(t *testing.T) {
	gw := newFakeGateway()
	gw.grant(1, 42)
	gw.grant(2, 42)
	srv := newTestServer(gw)

	host := connect(t, srv, "host", 1)
	guest := connect(t, srv, "guest", 2)
	dispatch(t, srv, &chat.Frame{Type: chat.FrameSubscribe, ActivityID: 42}, host)
	mustFrame(t, host)
	dispatch(t, srv, &chat.Frame{Type: chat.FrameSubscribe, ActivityID: 42}, guest)
	mustFrame(t, guest)

	// host kicks the guest out between subscribe and send
	gw.revoke(2, 42)
	dispatch(t, srv, &chat.Frame{Type: chat.FrameChat, ActivityID: 42, SenderID: 2, Content: "still here?"}, guest)

	if got := gw.persistCount(); got != 0 {
		t.Fatalf("persisted %d messages after revocation, want 0", got)
	}
	mustNoFrame(t, host)
	mustNoFrame(t, guest) // no error frame either
}

func TestChatUnauthenticatedDropped(t *testing.T) {
	gw := newFakeGateway()
	gw.grant(1, 42)
	srv := newTestServer(gw)
	c := chat.NewClient("c1", nil, 16)

	dispatch(t, srv, &chat.Frame{Type: chat.FrameChat, ActivityID: 42, Content: "hi"}, c)
	if got := gw.persistCount(); got != 0 {
		t.Fatalf("persisted %d, want 0", got)
	}
	mustNoFrame(t, c)
}

func TestChatBoundIdentityWinsOverClaimedSender(t *testing.T) {
	gw := newFakeGateway()
	gw.grant(1, 42)
	gw.users[1] = &model.User{ID: 1, Username: "alice"}
	srv := newTestServer(gw)
	c := connect(t, srv, "c1", 1)
	dispatch(t, srv, &chat.Frame{Type: chat.FrameSubscribe, ActivityID: 42}, c)
	mustFrame(t, c)

	// payload claims user 99; the connection is bound to user 1
	dispatch(t, srv, &chat.Frame{Type: chat.FrameChat, ActivityID: 42, SenderID: 99, Content: "spoof"}, c)
	got := mustFrame(t, c)
	if got["senderId"] != float64(1) {
		t.Fatalf("senderId = %v, want bound identity 1", got["senderId"])
	}
}

func TestSubscribeSeedsRecentWindow(t *testing.T) {
	gw := newFakeGateway()
	gw.grant(7, 42)
	gw.recent = []*model.ChatMessage{
		{ID: 1, ActivityID: 42, SenderID: 1, SenderName: "alice", Content: "older", CreatedAt: time.Now().Add(-time.Minute)},
		{ID: 2, ActivityID: 42, SenderID: 2, SenderName: "bob", Content: "newer", CreatedAt: time.Now()},
	}
	srv := newTestServer(gw)
	c := connect(t, srv, "c1", 7)

	dispatch(t, srv, &chat.Frame{Type: chat.FrameSubscribe, ActivityID: 42}, c)
	got := mustFrame(t, c)
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v, want 2", got["messages"])
	}
	first, _ := msgs[0].(map[string]any)
	if first["content"] != "older" {
		t.Fatalf("window order wrong, first = %v", first)
	}
}

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	chatmodel "MeetChat/module/chat/model"
	chatsvc "MeetChat/module/chat/service"
	usermodel "MeetChat/module/user/model"
	usersvc "MeetChat/module/user/service"
	"MeetChat/tools/errs"
	"MeetChat/tools/security"
)

// gwStore is the minimal durable-store fake the gateway wiring tests need.
type gwStore struct {
	mu       sync.Mutex
	users    map[string]*usermodel.User
	messages map[int64]*chatmodel.Message
	nextID   int64
	unread   map[string]int64
}

func newGWStore(userIDs ...string) *gwStore {
	s := &gwStore{
		users:    map[string]*usermodel.User{},
		messages: map[int64]*chatmodel.Message{},
		unread:   map[string]int64{},
	}
	for _, id := range userIDs {
		s.users[id] = &usermodel.User{ID: id, FullName: id}
	}
	return s
}

func (s *gwStore) UserByID(ctx context.Context, id string) (*usermodel.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errs.ErrUserNotFound.WrapMsg(id)
	}
	return u, nil
}

func (s *gwStore) SetPresence(ctx context.Context, id, status string, lastSeen time.Time) error {
	return nil
}

func (s *gwStore) SaveMessage(ctx context.Context, m *chatmodel.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	m.Timestamp = time.Now()
	s.messages[m.ID] = m
	s.unread[m.RecipientID]++
	return nil
}

func (s *gwStore) MarkAllRead(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unread[userID] = 0
	return nil
}

func (s *gwStore) UnreadCount(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread[userID], nil
}

func (s *gwStore) ContactsOf(ctx context.Context, userID string) ([]*chatmodel.Contact, error) {
	return nil, nil
}

func (s *gwStore) MessageByID(ctx context.Context, id int64) (*chatmodel.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, errs.ErrUserNotFound.WrapMsg("message")
	}
	return m, nil
}

func (s *gwStore) MessagesBetween(ctx context.Context, a, b string, limit int) ([]*chatmodel.Message, error) {
	return nil, nil
}

func newTestGateway(store *gwStore) *Gateway {
	return NewGateway("gw-test", security.DefaultOptions([]byte("test")),
		chatsvc.New(store), usersvc.New(store, "gw-test"))
}

func drainOne(t *testing.T, c *Client) map[string]any {
	t.Helper()
	select {
	case raw := <-c.Send:
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame delivered to %s", c.ConnID)
		return nil
	}
}

func TestSendMessageDeliversToBothSessionGroups(t *testing.T) {
	store := newGWStore("alice", "bob")
	gw := newTestGateway(store)

	ca := NewClient("c-a", "alice", nil, 8)
	cb := NewClient("c-b", "bob", nil, 8)
	gw.reg.Register("alice", ca)
	gw.reg.Register("bob", cb)

	f, err := ParseFrame([]byte(`{"type":"send_message","recipient_id":"bob","message":"hi"}`))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if err := gw.disp.Dispatch(&Context{GW: gw}, f, ca); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	fa := drainOne(t, ca)
	fb := drainOne(t, cb)
	if fa["type"] != OutChatMessage || fb["type"] != OutChatMessage {
		t.Fatalf("types = %v / %v", fa["type"], fb["type"])
	}
	ma := fa["message"].(map[string]any)
	mb := fb["message"].(map[string]any)
	if ma["isSent"] != true {
		t.Errorf("sender view isSent = %v, want true", ma["isSent"])
	}
	if mb["isSent"] != false {
		t.Errorf("recipient view isSent = %v, want false", mb["isSent"])
	}
	if len(store.messages) != 1 {
		t.Errorf("messages stored = %d, want 1", len(store.messages))
	}
}

func TestSendMessageToMissingRecipient(t *testing.T) {
	store := newGWStore("alice")
	gw := newTestGateway(store)
	ca := NewClient("c-a", "alice", nil, 8)
	gw.reg.Register("alice", ca)

	f, _ := ParseFrame([]byte(`{"type":"send_message","recipient_id":"ghost","message":"hi"}`))
	err := gw.disp.Dispatch(&Context{GW: gw}, f, ca)
	if !errors.Is(err, errs.ErrUserNotFound) {
		t.Fatalf("err = %v, want not-found", err)
	}
	if len(store.messages) != 0 {
		t.Fatalf("message stored for missing recipient")
	}
	if len(ca.Send) != 0 {
		t.Fatalf("frames delivered for failed send")
	}
}

func TestTypingRelayedToRecipientOnly(t *testing.T) {
	gw := newTestGateway(newGWStore("alice", "bob"))
	ca := NewClient("c-a", "alice", nil, 8)
	cb := NewClient("c-b", "bob", nil, 8)
	gw.reg.Register("alice", ca)
	gw.reg.Register("bob", cb)

	f, _ := ParseFrame([]byte(`{"type":"is_typing","recipient_id":"bob","is_typing":true}`))
	if err := gw.disp.Dispatch(&Context{GW: gw}, f, ca); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	out := drainOne(t, cb)
	if out["type"] != OutTypingStatus || out["user_id"] != "alice" || out["is_typing"] != true {
		t.Fatalf("typing frame = %v", out)
	}
	if len(ca.Send) != 0 {
		t.Fatalf("typing echoed to sender")
	}
}

func TestCallSignalingRelaysWithInitiator(t *testing.T) {
	gw := newTestGateway(newGWStore("alice", "bob"))
	cb := NewClient("c-b", "bob", nil, 8)
	gw.reg.Register("bob", cb)
	ca := NewClient("c-a", "alice", nil, 8)

	f, _ := ParseFrame([]byte(`{"type":"initiate_call","otherPersonId":"bob","meetingLink":"https://m/x","otherPersonName":"Alice"}`))
	if err := gw.disp.Dispatch(&Context{GW: gw}, f, ca); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	out := drainOne(t, cb)
	if out["type"] != OutIncomingCall || out["callerId"] != "alice" || out["meetingLink"] != "https://m/x" {
		t.Fatalf("call frame = %v", out)
	}
}

func TestCallSignalingToAbsentTargetSilent(t *testing.T) {
	gw := newTestGateway(newGWStore("alice", "bob"))
	ca := NewClient("c-a", "alice", nil, 8)

	f, _ := ParseFrame([]byte(`{"type":"accept_call","otherPersonId":"bob"}`))
	if err := gw.disp.Dispatch(&Context{GW: gw}, f, ca); err != nil {
		t.Fatalf("absent target must be silent, got %v", err)
	}
}

func TestMarkReadNotifiesEverySessionOfUser(t *testing.T) {
	store := newGWStore("alice", "bob")
	store.unread["bob"] = 4
	gw := newTestGateway(store)
	phone := NewClient("c-b1", "bob", nil, 8)
	laptop := NewClient("c-b2", "bob", nil, 8)
	gw.reg.Register("bob", phone)
	gw.reg.Register("bob", laptop)

	f, _ := ParseFrame([]byte(`{"type":"mark_read"}`))
	if err := gw.disp.Dispatch(&Context{GW: gw}, f, phone); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	for _, c := range []*Client{phone, laptop} {
		out := drainOne(t, c)
		if out["type"] != OutNotification || out["unread_count"] != float64(0) {
			t.Fatalf("%s frame = %v", c.ConnID, out)
		}
	}
	if n, _ := store.UnreadCount(context.Background(), "bob"); n != 0 {
		t.Fatalf("unread = %d after mark_read", n)
	}
}

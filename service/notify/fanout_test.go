package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	chatmodel "MeetChat/module/chat/model"
	"MeetChat/service/queue"
	"MeetChat/tools/errs"
)

type fakeSource struct {
	mu       sync.Mutex
	counts   map[string]int64
	failFor  map[string]bool
	computed []string
	messages map[int64]*chatmodel.Message
}

func (f *fakeSource) RecomputeUnread(ctx context.Context, userID string, ttl time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.computed = append(f.computed, userID)
	if f.failFor[userID] {
		return 0, errs.ErrTransientInfra.WrapMsg("store down")
	}
	return f.counts[userID], nil
}

func (f *fakeSource) MessageByID(ctx context.Context, id int64) (*chatmodel.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return nil, errs.ErrUserNotFound.WrapMsg("message")
	}
	return m, nil
}

func jobBytes(t *testing.T, j Job) []byte {
	t.Helper()
	b, err := json.Marshal(j)
	if err != nil {
		t.Fatalf("marshal job: %v", err)
	}
	return b
}

func TestHandleJobIdempotent(t *testing.T) {
	src := &fakeSource{
		counts: map[string]int64{"alice": 0, "bob": 3},
		messages: map[int64]*chatmodel.Message{
			7: {ID: 7, SenderID: "alice", RecipientID: "bob", Content: "hi", Timestamp: time.Now()},
		},
	}
	n := New(nil, src)
	msg := queue.Message{Data: jobBytes(t, Job{
		PairKey: "alice_bob", SenderID: "alice", RecipientID: "bob", MessageID: 7,
	})}

	// At-least-once delivery means the same job can arrive twice; both runs
	// recompute from ground truth and must agree.
	for i := 0; i < 2; i++ {
		if err := n.handleJob(context.Background(), msg); err != nil {
			t.Fatalf("handleJob run %d: %v", i+1, err)
		}
	}
	if len(src.computed) != 4 {
		t.Fatalf("recompute calls = %d, want 4 (both users, both runs)", len(src.computed))
	}
}

func TestHandleJobAbsorbsRecomputeFailure(t *testing.T) {
	src := &fakeSource{
		counts:   map[string]int64{"alice": 1},
		failFor:  map[string]bool{"bob": true},
		messages: map[int64]*chatmodel.Message{},
	}
	n := New(nil, src)
	msg := queue.Message{Data: jobBytes(t, Job{
		PairKey: "alice_bob", SenderID: "alice", RecipientID: "bob", MessageID: 9,
	})}

	if err := n.handleJob(context.Background(), msg); err != nil {
		t.Fatalf("handleJob: %v (one side failing must not fail the job)", err)
	}
}

func TestHandleJobRejectsBadPayload(t *testing.T) {
	n := New(nil, &fakeSource{})
	if err := n.handleJob(context.Background(), queue.Message{Data: []byte("{")}); err == nil {
		t.Fatalf("handleJob accepted malformed payload")
	}
}

func TestRelayDeliversPerUser(t *testing.T) {
	got := map[string]int64{}
	r := NewRelay(func(userID string, unread int64) { got[userID] = unread })

	payload, _ := json.Marshal(map[string]any{
		"type":       "new_message",
		"message_id": 7,
		"pair_key":   "alice_bob",
		"sender":     "alice",
		"unread":     map[string]int64{"alice": 0, "bob": 3},
	})
	r.handle(payload)

	if got["bob"] != 3 || got["alice"] != 0 || len(got) != 2 {
		t.Fatalf("deliveries = %v", got)
	}
}

func TestRelayIgnoresGarbage(t *testing.T) {
	called := false
	r := NewRelay(func(string, int64) { called = true })
	r.handle([]byte("not json"))
	if called {
		t.Fatalf("deliver fired for malformed payload")
	}
}

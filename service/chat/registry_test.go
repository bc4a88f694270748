package chat

import (
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGroupKeySanitize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"alice", "user_alice"},
		{"a-b_C9", "user_a-b_C9"},
		{"bob!@#", "user_bob___"},
		{"sp ace", "user_sp_ace"},
	}
	for _, c := range cases {
		if got := GroupKey(c.in); got != c.want {
			t.Errorf("GroupKey(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	long := GroupKey(strings.Repeat("x", 200))
	if len(long) > maxGroupKeyLen {
		t.Errorf("group key length = %d, want <= %d", len(long), maxGroupKeyLen)
	}
}

func TestRegisterIdempotent(t *testing.T) {
	r := NewRegistry(nil)
	c := NewClient("conn-1", "alice", nil, 4)

	r.Register("alice", c)
	r.Register("alice", c)

	if n := r.CountUser("alice"); n != 1 {
		t.Fatalf("CountUser = %d, want 1", n)
	}
	if got := r.GetByConnID("conn-1"); got != c {
		t.Fatalf("GetByConnID returned wrong client")
	}
}

func TestUnregisterFiresOnEmptyOnlyForLastConn(t *testing.T) {
	var mu sync.Mutex
	var gone []string
	r := NewRegistry(func(userID string) {
		mu.Lock()
		gone = append(gone, userID)
		mu.Unlock()
	})

	c1 := NewClient("conn-1", "alice", nil, 4)
	c2 := NewClient("conn-2", "alice", nil, 4)
	r.Register("alice", c1)
	r.Register("alice", c2)

	r.Unregister("alice", "conn-1")
	mu.Lock()
	n := len(gone)
	mu.Unlock()
	if n != 0 {
		t.Fatalf("onEmpty fired with a live connection remaining")
	}

	r.Unregister("alice", "conn-2")
	mu.Lock()
	defer mu.Unlock()
	if len(gone) != 1 || gone[0] != "alice" {
		t.Fatalf("onEmpty = %v, want [alice]", gone)
	}
}

func TestUnregisterUnknownConnNoHook(t *testing.T) {
	fired := false
	r := NewRegistry(func(string) { fired = true })
	r.Unregister("alice", "nope")
	if fired {
		t.Fatalf("onEmpty fired for unknown connection")
	}
}

func TestListUserSnapshot(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("alice", NewClient("conn-1", "alice", nil, 4))
	r.Register("alice", NewClient("conn-2", "alice", nil, 4))
	r.Register("bob", NewClient("conn-3", "bob", nil, 4))

	if got := len(r.ListUser("alice")); got != 2 {
		t.Fatalf("ListUser(alice) = %d clients, want 2", got)
	}
	if got := len(r.ListUser("carol")); got != 0 {
		t.Fatalf("ListUser(carol) = %d clients, want 0", got)
	}
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestFanoutDropsBlockedClientOnly(t *testing.T) {
	healthy := NewClient("conn-h", "alice", nil, 4)
	blocked := NewClient("conn-b", "alice", nil, 1)
	blocked.Send <- []byte("stuck") // queue full, next TrySend must fail

	var mu sync.Mutex
	var dropped []string
	f := NewFanout(8, func(c *Client) {
		mu.Lock()
		dropped = append(dropped, c.ConnID)
		mu.Unlock()
	})

	f.Broadcast([]*Client{blocked, healthy}, []byte("hello"))

	if len(healthy.Send) != 1 {
		t.Fatalf("healthy sibling not delivered")
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(dropped) == 1
	}, "blocked drop")

	mu.Lock()
	defer mu.Unlock()
	if dropped[0] != "conn-b" {
		t.Fatalf("dropped %v, want [conn-b]", dropped)
	}
}

func TestBroadcastDeliversInOrderPerConnection(t *testing.T) {
	const n = 5000
	main := NewClient("conn-main", "alice", nil, n)
	sibA := NewClient("conn-sib-a", "alice", nil, n)
	sibB := NewClient("conn-sib-b", "alice", nil, n)
	f := NewFanout(8, nil)

	conns := []*Client{sibA, main, sibB}
	for i := 0; i < n; i++ {
		f.Broadcast(conns, []byte(strconv.Itoa(i)))
	}

	for i := 0; i < n; i++ {
		select {
		case raw := <-main.Send:
			if got := string(raw); got != strconv.Itoa(i) {
				t.Fatalf("position %d: got %s, want %d", i, got, i)
			}
		default:
			t.Fatalf("payload %d missing from send queue", i)
		}
	}
}

func TestTrySendAfterClose(t *testing.T) {
	c := NewClient("conn-1", "alice", nil, 4)
	c.Close()
	if c.TrySend([]byte("x")) {
		t.Fatalf("TrySend succeeded on closed client")
	}
}

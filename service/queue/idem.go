package queue

import (
	"context"
	"strings"
	"sync"
	"time"
)

// IdemStore answers "have I seen this job id already".
type IdemStore interface {
	SeenOnce(key string, ttl time.Duration) (seen bool, err error)
}

const idemSweepEvery = time.Minute

// memIdem is the single-process implementation. Good enough here because a
// duplicate slipping through only re-runs an idempotent recompute. Expired
// keys are swept lazily from inside SeenOnce, so the store owns no goroutine
// and can be created freely (tests included) without leaking.
type memIdem struct {
	mu        sync.Mutex
	m         map[string]int64 // key -> expire unix nanos
	ttl       time.Duration
	nextSweep time.Time
}

func NewMemIdem(defaultTTL time.Duration) IdemStore {
	return &memIdem{
		m:         make(map[string]int64),
		ttl:       defaultTTL,
		nextSweep: time.Now().Add(idemSweepEvery),
	}
}

func (mi *memIdem) SeenOnce(key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = mi.ttl
	}
	now := time.Now()

	mi.mu.Lock()
	defer mi.mu.Unlock()
	if now.After(mi.nextSweep) {
		for k, exp := range mi.m {
			if exp <= now.UnixNano() {
				delete(mi.m, k)
			}
		}
		mi.nextSweep = now.Add(idemSweepEvery)
	}
	if old, ok := mi.m[key]; ok && old > now.UnixNano() {
		return true, nil
	}
	mi.m[key] = now.Add(ttl).UnixNano()
	return false, nil
}

func msgIDFromHeader(h map[string]string) string {
	for _, k := range []string{"Nats-Msg-Id", "nats-msg-id", "X-Msg-Id", "x-msg-id"} {
		if v, ok := h[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// IdemMiddleware skips messages whose id was already processed within ttl.
func IdemMiddleware(store IdemStore, ttl time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) error {
			id := msgIDFromHeader(msg.Header)
			if id == "" {
				// weak fallback id from subject+body
				id = msg.Subject + "|" + strings.TrimSpace(string(msg.Data))
			}
			seen, _ := store.SeenOnce(id, ttl)
			if seen {
				return nil
			}
			return next(ctx, msg)
		}
	}
}

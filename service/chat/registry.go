package chat

import (
	"strings"
	"sync"
)

const maxGroupKeyLen = 64

// GroupKey derives the routing key for a user's session group. User-supplied
// identifiers (display uuids and the like) are sanitized to a restricted
// character set and length-capped before becoming a routing key, so two
// users can never collide and no one can inject key syntax.
func GroupKey(id string) string {
	var b strings.Builder
	b.Grow(len(id) + 5)
	b.WriteString("user_")
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= maxGroupKeyLen {
			break
		}
	}
	return b.String()
}

// Registry maps logical groups to live clients. It is the only shared
// mutable in-memory structure in the core; everything durable lives in the
// store. Constructed once at boot and injected, never a package global.
type Registry struct {
	mu      sync.RWMutex
	byGroup map[string]map[string]*Client // group key -> conn id -> client
	byConn  map[string]*Client

	// onEmpty fires (outside the lock) when a user's last connection is
	// gone; the gateway hooks presence-offline here.
	onEmpty func(userID string)
}

func NewRegistry(onEmpty func(userID string)) *Registry {
	return &Registry{
		byGroup: make(map[string]map[string]*Client),
		byConn:  make(map[string]*Client),
		onEmpty: onEmpty,
	}
}

// Register adds the client to its user group. Idempotent for the same conn.
func (r *Registry) Register(userID string, c *Client) {
	key := GroupKey(userID)
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.byGroup[key]
	if g == nil {
		g = make(map[string]*Client)
		r.byGroup[key] = g
	}
	g[c.ConnID] = c
	r.byConn[c.ConnID] = c
}

// Unregister removes the connection. When the user's set becomes empty the
// presence-offline side effect runs synchronously relative to the disconnect
// so presence cannot go stale indefinitely.
func (r *Registry) Unregister(userID, connID string) {
	key := GroupKey(userID)
	empty := false

	r.mu.Lock()
	if g := r.byGroup[key]; g != nil {
		if _, ok := g[connID]; ok {
			delete(g, connID)
			if len(g) == 0 {
				delete(r.byGroup, key)
				empty = true
			}
		}
	}
	delete(r.byConn, connID)
	r.mu.Unlock()

	if empty && r.onEmpty != nil {
		r.onEmpty(userID)
	}
}

// ListGroup snapshots a group's clients; iteration never holds the write
// path hostage.
func (r *Registry) ListGroup(key string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g := r.byGroup[key]
	if len(g) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(g))
	for _, c := range g {
		out = append(out, c)
	}
	return out
}

// ListUser lists the live clients of one user.
func (r *Registry) ListUser(userID string) []*Client {
	return r.ListGroup(GroupKey(userID))
}

// CountUser reports how many connections the user currently holds.
func (r *Registry) CountUser(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byGroup[GroupKey(userID)])
}

func (r *Registry) GetByConnID(connID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byConn[connID]
}

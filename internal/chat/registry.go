package chat

import (
	"sync"
	"time"
)

// Registry is the authoritative table of live connections. A single RWMutex
// serializes every mutation, so Snapshot and FindByUser always observe a
// consistent point in time: never a half-removed entry, never the same
// connection twice.
type Registry struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[*Client]bool)}
}

func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = true
}

// Unregister removes the connection and reports whether it was present.
// It is idempotent: the read pump, the sweep, and the backpressure path may
// all race to tear down the same client, but only one caller gets true and
// owns closing the send channel.
func (r *Registry) Unregister(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c]; !ok {
		return false
	}
	delete(r.clients, c)
	return true
}

// Touch refreshes the connection's lastSeen. lastSeen is guarded by the
// registry mutex, not by the client, so the sweep sees consistent values.
func (r *Registry) Touch(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.lastSeen = time.Now()
}

// Snapshot returns the authenticated users with at least one live
// connection, deduplicated by user id.
func (r *Registry) Snapshot() []OnlineUser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[int]bool, len(r.clients))
	online := make([]OnlineUser, 0, len(r.clients))
	for c := range r.clients {
		if !c.authenticated || seen[c.userID] {
			continue
		}
		seen[c.userID] = true
		online = append(online, OnlineUser{UserID: c.userID, Username: c.username})
	}
	return online
}

// FindByUser returns every live connection owned by the user. A user with
// multiple tabs open has one entry per tab.
func (r *Registry) FindByUser(userID int) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matches []*Client
	for c := range r.clients {
		if c.authenticated && c.userID == userID {
			matches = append(matches, c)
		}
	}
	return matches
}

// All returns every live connection, authenticated or not.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		all = append(all, c)
	}
	return all
}

// Stale returns the authenticated connections whose last heartbeat is older
// than timeout.
func (r *Registry) Stale(timeout time.Duration) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now()
	var stale []*Client
	for c := range r.clients {
		if c.authenticated && now.Sub(c.lastSeen) > timeout {
			stale = append(stale, c)
		}
	}
	return stale
}

// Send queues payload on the client's outbound channel without blocking.
// The read lock is held for the whole attempt so an Unregister (and the
// subsequent channel close) cannot interleave with the send. Returns false
// if the client is gone or its buffer is full.
func (r *Registry) Send(c *Client, payload []byte) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.clients[c] {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

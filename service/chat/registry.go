package chat

import (
	"sync"
)

// Registry tracks live connections under two query indexes: by authenticated
// user (multi-device) and by subscribed room. It is instantiated once at
// startup and injected; there is no package-level instance.
//
// It does no authorization: callers register a room subscription only after
// the access check has passed.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int64]map[string]*Client // user -> conn_id -> client
	byRoom map[int64]map[string]*Client // room -> conn_id -> client
	byConn map[string]*Client           // conn_id -> client
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[int64]map[string]*Client),
		byRoom: make(map[int64]map[string]*Client),
		byConn: make(map[string]*Client),
	}
}

// Add registers an authenticated client under its user id.
func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.byUser[c.UserID]
	if m == nil {
		m = make(map[string]*Client)
		r.byUser[c.UserID] = m
	}
	m[c.ConnID] = c
	r.byConn[c.ConnID] = c
}

// SubscribeRoom adds the client to a room's subscriber set. Set semantics:
// subscribing twice leaves a single entry.
func (r *Registry) SubscribeRoom(roomID int64, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.byRoom[roomID]
	if m == nil {
		m = make(map[string]*Client)
		r.byRoom[roomID] = m
	}
	m[c.ConnID] = c
}

// Remove erases the client from every index, deleting emptied sub-maps so
// churn does not grow the registry. Safe to call for a client that never
// authenticated or subscribed; must be called exactly once on close.
func (r *Registry) Remove(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byConn, c.ConnID)
	if m := r.byUser[c.UserID]; m != nil {
		delete(m, c.ConnID)
		if len(m) == 0 {
			delete(r.byUser, c.UserID)
		}
	}
	for roomID := range c.rooms {
		if m := r.byRoom[roomID]; m != nil {
			delete(m, c.ConnID)
			if len(m) == 0 {
				delete(r.byRoom, roomID)
			}
		}
	}
}

// ListByUser returns a snapshot of the user's live connections.
// Empty slice when the user has none.
func (r *Registry) ListByUser(userID int64) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[userID]
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

// ListByRoom returns a snapshot of a room's current subscriber set.
func (r *Registry) ListByRoom(roomID int64) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byRoom[roomID]
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

// GetByConnID looks up a single connection.
func (r *Registry) GetByConnID(connID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byConn[connID]
}

// Len reports live connection count (debug/metrics).
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

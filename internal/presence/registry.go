// Package presence tracks which users currently hold a live realtime
// connection. The Registry is this process's local view (user ID to
// connection ID); the Mirror keeps a Redis marker per online user so that
// other server instances can answer "is this user online anywhere" and route
// direct events over the bus.
package presence

import "sync"

// Registry maps user IDs to their active connection ID. At most one handle is
// kept per user: a new connection overwrites the old one (last-connection
// wins). The reverse index makes disconnect cleanup exact, so a stale
// handle's disconnect never evicts a newer connection for the same user.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]string // user ID -> connection ID
	byConn map[string]string // connection ID -> user ID
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]string),
		byConn: make(map[string]string),
	}
}

// SetOnline records connID as the user's active handle, replacing any prior
// handle. Returns the connection ID that was displaced, or "" if none.
func (r *Registry) SetOnline(userID, connID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.byUser[userID]
	if old != "" {
		delete(r.byConn, old)
	}
	r.byUser[userID] = connID
	r.byConn[connID] = userID
	return old
}

// Lookup returns the active connection ID for a user, or "" if the user has
// no live connection on this instance.
func (r *Registry) Lookup(userID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byUser[userID]
}

// UserFor returns the user bound to a connection ID, or "" if the connection
// never announced itself (or was displaced by a newer one).
func (r *Registry) UserFor(connID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byConn[connID]
}

// RemoveConn removes the presence entry owned by connID and returns the user
// that went offline. If connID is not the user's current handle (a newer
// connection already overwrote it), nothing is removed and "" is returned.
func (r *Registry) RemoveConn(connID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[connID]
	if !ok {
		return ""
	}
	delete(r.byConn, connID)
	if r.byUser[userID] == connID {
		delete(r.byUser, userID)
		return userID
	}
	return ""
}

// Count returns the number of users currently online on this instance.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

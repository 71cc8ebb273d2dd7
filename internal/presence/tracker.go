package presence

import (
	"context"
	"log"
)

// Tracker answers "is this user online anywhere" by consulting the local
// registry first and the Redis mirror second. The mirror may be nil in
// single-instance deployments, in which case only local presence counts.
type Tracker struct {
	Registry *Registry
	Mirror   *Mirror
}

// IsOnline reports whether the user holds a live connection on this instance
// or, failing that, on any instance according to the mirror. Mirror errors
// degrade to "offline": a missed notification is preferable to blocking the
// send path on Redis.
func (t *Tracker) IsOnline(ctx context.Context, userID string) bool {
	if t.Registry != nil && t.Registry.Lookup(userID) != "" {
		return true
	}
	if t.Mirror == nil {
		return false
	}
	online, err := t.Mirror.IsOnline(ctx, userID)
	if err != nil {
		log.Printf("presence: mirror lookup for %s failed: %v", userID, err)
		return false
	}
	return online
}

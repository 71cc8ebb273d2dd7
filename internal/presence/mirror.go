package presence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// OnlinePrefix is the Redis key prefix for per-user online markers.
	OnlinePrefix = "presence:online:"

	// OnlineTTL bounds how long a marker outlives a crashed instance. Live
	// instances refresh markers from the heartbeat pass well inside this.
	OnlineTTL = 90 * time.Second
)

// Mirror publishes per-user online markers to Redis. Each marker records
// which server instance holds the connection so operators can trace routing.
type Mirror struct {
	client *redis.Client
	server string // identifier for this server instance
}

// NewMirror creates a Mirror writing markers on behalf of the named instance.
func NewMirror(client *redis.Client, server string) *Mirror {
	return &Mirror{client: client, server: server}
}

// SetOnline writes the online marker for a user with the standard TTL.
func (m *Mirror) SetOnline(ctx context.Context, userID string) error {
	return m.client.Set(ctx, OnlinePrefix+userID, m.server, OnlineTTL).Err()
}

// Refresh extends the TTL on a user's marker. A missing marker is re-created.
func (m *Mirror) Refresh(ctx context.Context, userID string) error {
	ok, err := m.client.Expire(ctx, OnlinePrefix+userID, OnlineTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return m.SetOnline(ctx, userID)
	}
	return nil
}

// SetOffline deletes the user's marker.
func (m *Mirror) SetOffline(ctx context.Context, userID string) error {
	return m.client.Del(ctx, OnlinePrefix+userID).Err()
}

// IsOnline reports whether any instance currently holds a connection for the
// user.
func (m *Mirror) IsOnline(ctx context.Context, userID string) (bool, error) {
	err := m.client.Get(ctx, OnlinePrefix+userID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

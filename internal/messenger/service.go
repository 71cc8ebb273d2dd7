// Package messenger implements the single send operation behind both entry
// points. Whether a message arrives over the HTTP API or the realtime
// channel, the same sequence runs: validate the receiver, persist, publish
// the room fan-out event, and fire a direct notification if the receiver is
// online somewhere. Keeping one path removes any ambiguity about ordering or
// duplication between persistence and broadcast.
package messenger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/careerlink/messaging/internal/message"
	"github.com/careerlink/messaging/internal/messaging"
	"github.com/careerlink/messaging/internal/metrics"
	"github.com/careerlink/messaging/internal/protocol"
	"github.com/careerlink/messaging/internal/room"
	"github.com/careerlink/messaging/internal/user"
)

// ErrReceiverNotFound is returned when the receiver ID resolves to no user.
var ErrReceiverNotFound = errors.New("messenger: receiver not found")

// MessageStore persists messages.
type MessageStore interface {
	Append(ctx context.Context, senderID, receiverID, body string) (*message.Message, error)
}

// Directory validates that users exist.
type Directory interface {
	Get(ctx context.Context, id string) (*user.User, error)
}

// Bus publishes fan-out events.
type Bus interface {
	Publish(subject string, data []byte) error
}

// Presence answers whether a user is online on any instance.
type Presence interface {
	IsOnline(ctx context.Context, userID string) bool
}

// Service is the unified persist-then-publish send path.
type Service struct {
	store    MessageStore
	users    Directory
	bus      Bus
	presence Presence
}

// NewService wires the send path from its collaborators.
func NewService(store MessageStore, users Directory, bus Bus, presence Presence) *Service {
	return &Service{store: store, users: users, bus: bus, presence: presence}
}

// Send validates the receiver, persists the message, fans it out to the
// conversation room, and notifies the receiver directly if they are online.
// Persistence failure aborts the send; publish failures are logged and do not
// fail the call, since the message is already durable and the client will see
// it on the next fetch.
func (s *Service) Send(ctx context.Context, senderID, receiverID, body string) (*message.Message, error) {
	start := time.Now()

	if _, err := s.users.Get(ctx, receiverID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, fmt.Errorf("messenger: receiver lookup: %w", err)
	}

	m, err := s.store.Append(ctx, senderID, receiverID, body)
	if err != nil {
		metrics.MessagesTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	metrics.MessagesTotal.WithLabelValues("sent").Inc()

	// Room fan-out: every subscriber of the canonical room receives the
	// message, the sender's own connection included.
	event, err := protocol.NewServerMessage(protocol.TypeReceiveMessage, protocol.ReceiveMessageMsg{
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Message:    m.Body,
		Timestamp:  m.CreatedAt.Unix(),
	})
	if err != nil {
		log.Printf("messenger: build receive-message event: %v", err)
	} else if err := s.bus.Publish(messaging.RoomSubject(room.Key(senderID, receiverID)), event); err != nil {
		log.Printf("messenger: room publish %s->%s: %v", senderID, receiverID, err)
	} else {
		metrics.MessagesTotal.WithLabelValues("delivered").Inc()
	}

	// Direct notification for a receiver who is online but may not be
	// viewing this conversation room.
	if s.presence.IsOnline(ctx, receiverID) {
		notif, err := protocol.NewServerMessage(protocol.TypeNotification, protocol.NotificationMsg{
			SenderID: m.SenderID,
			Message:  m.Body,
		})
		if err != nil {
			log.Printf("messenger: build notification event: %v", err)
		} else if err := s.bus.Publish(messaging.UserSubject(receiverID), notif); err != nil {
			log.Printf("messenger: notify %s: %v", receiverID, err)
		} else {
			metrics.MessagesTotal.WithLabelValues("notified").Inc()
		}
	}

	metrics.SendLatency.Observe(time.Since(start).Seconds())
	return m, nil
}

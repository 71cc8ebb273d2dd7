// Package realtime implements the application side of the WebSocket channel:
// identity announcements, room membership, message sends, typing indicators,
// read receipts, and disconnect cleanup. The transport (internal/ws) stays
// protocol-agnostic; everything here operates on connection IDs and the
// fan-out bus.
package realtime

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/careerlink/messaging/internal/message"
	"github.com/careerlink/messaging/internal/messaging"
	"github.com/careerlink/messaging/internal/metrics"
	"github.com/careerlink/messaging/internal/presence"
	"github.com/careerlink/messaging/internal/protocol"
	"github.com/careerlink/messaging/internal/room"
)

// storeTimeout bounds database and Redis calls made from event handlers so a
// hung dependency cannot pin a worker goroutine.
const storeTimeout = 3 * time.Second

// mirrorRefreshInterval is how often locally-online users get their shared
// presence marker TTL extended.
const mirrorRefreshInterval = 30 * time.Second

// Transport delivers serialized events to connections. Implemented by
// *ws.Server.
type Transport interface {
	SendMessage(connID string, data []byte) error
	Broadcast(data []byte)
}

// Bus is the cross-instance fan-out channel. Implemented by
// *messaging.Client.
type Bus interface {
	Publish(subject string, data []byte) error
	Subscribe(key, subject string, handler func(data []byte)) error
	Unsubscribe(key string) error
}

// Sender is the unified persist-then-publish send path. Implemented by
// *messenger.Service.
type Sender interface {
	Send(ctx context.Context, senderID, receiverID, body string) (*message.Message, error)
}

// ReadMarker flips read flags in bulk. Implemented by *message.Store.
type ReadMarker interface {
	MarkRead(ctx context.Context, senderID, receiverID string) (int64, error)
}

// SendGate throttles sends and typing signals per user. Implemented by a
// ratelimit.Limiter adapter; nil disables throttling.
type SendGate interface {
	// AllowSend returns false and a retry-after hint when the user is over
	// their send budget.
	AllowSend(ctx context.Context, userID string) (bool, time.Duration)

	// AllowTyping returns false when the user is over their typing budget.
	// Over-budget typing signals are dropped silently.
	AllowTyping(ctx context.Context, userID string) bool
}

// Hub owns per-connection realtime state: the user bound to each connection
// and the bus subscriptions opened on its behalf. One Hub serves all
// connections of one server instance.
type Hub struct {
	transport Transport
	bus       Bus
	registry  *presence.Registry
	mirror    *presence.Mirror // nil when running single-instance without Redis
	sender    Sender
	marker    ReadMarker
	gate      SendGate // nil disables send throttling

	mu      sync.Mutex
	subKeys map[string][]string // connID -> bus subscription keys
	done    chan struct{}
}

// NewHub creates a Hub. mirror and gate may be nil.
func NewHub(transport Transport, bus Bus, registry *presence.Registry, mirror *presence.Mirror, sender Sender, marker ReadMarker, gate SendGate) *Hub {
	return &Hub{
		transport: transport,
		bus:       bus,
		registry:  registry,
		mirror:    mirror,
		sender:    sender,
		marker:    marker,
		gate:      gate,
		subKeys:   make(map[string][]string),
		done:      make(chan struct{}),
	}
}

// Start subscribes to the shared status subject so presence transitions from
// any instance reach this instance's clients, and begins the mirror refresh
// loop. Call once before serving connections.
func (h *Hub) Start() error {
	if err := h.bus.Subscribe("status", messaging.SubjectStatus, func(data []byte) {
		h.transport.Broadcast(data)
	}); err != nil {
		return err
	}

	if h.mirror != nil {
		go h.refreshLoop()
	}
	return nil
}

// Stop terminates background work. Bus subscriptions are torn down by the
// bus client's own Close.
func (h *Hub) Stop() {
	close(h.done)
}

// ---------------------------------------------------------------------------
// Event handlers
// ---------------------------------------------------------------------------

// HandleUserOnline binds the announced user to the connection, opens the
// user's direct-event subscription, mirrors the online marker, and announces
// the transition to everyone.
func (h *Hub) HandleUserOnline(connID string, m protocol.UserOnlineMsg) {
	if m.UserID == "" {
		h.sendError(connID, "invalid_payload", "userId is required")
		return
	}

	displaced := h.registry.SetOnline(m.UserID, connID)
	if displaced != "" {
		log.Printf("realtime: user=%s reconnected, displacing conn=%s", m.UserID, displaced)
		// The displaced connection no longer owns the user; close its direct
		// subscription now so the user's events stop reaching the dead handle.
		// Its transport disconnect will clean up whatever remains.
		h.dropSub(displaced, "user:"+displaced)
	}
	metrics.OnlineUsers.Set(float64(h.registry.Count()))

	// Direct events (notifications, typing, read receipts) for this user are
	// published to their subject regardless of which instance they are on.
	key := "user:" + connID
	if err := h.bus.Subscribe(key, messaging.UserSubject(m.UserID), func(data []byte) {
		if err := h.transport.SendMessage(connID, data); err != nil {
			log.Printf("realtime: direct deliver conn=%s: %v", connID, err)
		}
	}); err != nil {
		log.Printf("realtime: user subscribe conn=%s: %v", connID, err)
		h.sendError(connID, "subscribe_failed", "could not register for notifications")
		return
	}
	h.trackSub(connID, key)

	if h.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := h.mirror.SetOnline(ctx, m.UserID); err != nil {
			log.Printf("realtime: mirror set online user=%s: %v", m.UserID, err)
		}
		cancel()
	}

	h.publishStatus(m.UserID, protocol.StatusOnline)
	log.Printf("realtime: user=%s online conn=%s", m.UserID, connID)
}

// HandleJoinChat subscribes the connection to the canonical conversation
// room for the pair. Joining is purely transport-level grouping; nothing is
// persisted.
func (h *Hub) HandleJoinChat(connID string, m protocol.JoinChatMsg) {
	if m.SenderID == "" || m.ReceiverID == "" {
		h.sendError(connID, "invalid_payload", "senderId and receiverId are required")
		return
	}

	roomKey := room.Key(m.SenderID, m.ReceiverID)
	key := "room:" + connID + ":" + roomKey
	if err := h.bus.Subscribe(key, messaging.RoomSubject(roomKey), func(data []byte) {
		if err := h.transport.SendMessage(connID, data); err != nil {
			log.Printf("realtime: room deliver conn=%s: %v", connID, err)
		}
	}); err != nil {
		log.Printf("realtime: room subscribe conn=%s room=%s: %v", connID, roomKey, err)
		h.sendError(connID, "subscribe_failed", "could not join conversation")
		return
	}
	h.trackSub(connID, key)
	log.Printf("realtime: conn=%s joined room=%s", connID, roomKey)
}

// HandleSendMessage persists and fans out a message through the unified send
// path. Any failure is reported to the originating connection only.
func (h *Hub) HandleSendMessage(connID string, m protocol.SendMessageMsg) {
	if err := message.ValidateBody(m.Message); err != nil {
		h.sendError(connID, "invalid_message", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if h.gate != nil {
		if ok, retryAfter := h.gate.AllowSend(ctx, m.SenderID); !ok {
			h.sendRateLimited(connID, retryAfter)
			return
		}
	}

	if _, err := h.sender.Send(ctx, m.SenderID, m.ReceiverID, m.Message); err != nil {
		log.Printf("realtime: send %s->%s failed: %v", m.SenderID, m.ReceiverID, err)
		h.sendError(connID, "send_failed", "message could not be delivered")
		return
	}
}

// HandleTyping routes a typing indicator to the receiver's direct subject.
// An offline receiver makes this a no-op; typing is ephemeral and
// unacknowledged.
func (h *Hub) HandleTyping(connID string, m protocol.TypingMsg) {
	h.relayTyping(m.SenderID, m.ReceiverID, protocol.TypeUserTyping)
}

// HandleStopTyping clears a typing indicator the same way it was set.
func (h *Hub) HandleStopTyping(connID string, m protocol.StopTypingMsg) {
	h.relayTyping(m.SenderID, m.ReceiverID, protocol.TypeUserStopTyping)
}

func (h *Hub) relayTyping(senderID, receiverID, eventType string) {
	if senderID == "" || receiverID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if h.gate != nil && !h.gate.AllowTyping(ctx, senderID) {
		return
	}
	if !h.isOnline(ctx, receiverID) {
		return
	}

	data, err := protocol.NewServerMessage(eventType, protocol.UserTypingMsg{SenderID: senderID})
	if err != nil {
		log.Printf("realtime: build %s event: %v", eventType, err)
		return
	}
	if err := h.bus.Publish(messaging.UserSubject(receiverID), data); err != nil {
		log.Printf("realtime: typing relay to %s: %v", receiverID, err)
	}
}

// HandleMarkRead marks every message from the counterpart to the reader as
// read, then confirms to the counterpart if they are online. In the payload,
// senderId is the user doing the reading and receiverId is the counterpart
// whose messages are being read.
func (h *Hub) HandleMarkRead(connID string, m protocol.MarkReadMsg) {
	if m.SenderID == "" || m.ReceiverID == "" {
		h.sendError(connID, "invalid_payload", "senderId and receiverId are required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	n, err := h.marker.MarkRead(ctx, m.ReceiverID, m.SenderID)
	if err != nil {
		log.Printf("realtime: mark read %s<-%s failed: %v", m.SenderID, m.ReceiverID, err)
		h.sendError(connID, "mark_read_failed", "could not mark messages as read")
		return
	}
	if n > 0 {
		metrics.ReadReceiptsTotal.Inc()
	}

	if !h.isOnline(ctx, m.ReceiverID) {
		return
	}
	data, err := protocol.NewServerMessage(protocol.TypeMessagesRead, protocol.MessagesReadMsg{
		ReadBy: m.SenderID,
	})
	if err != nil {
		log.Printf("realtime: build messages-read event: %v", err)
		return
	}
	if err := h.bus.Publish(messaging.UserSubject(m.ReceiverID), data); err != nil {
		log.Printf("realtime: read receipt to %s: %v", m.ReceiverID, err)
	}
}

// HandleDisconnect clears the connection's presence entry and bus
// subscriptions. Driven by the transport's disconnect detection, never by an
// application event. A stale handle (already displaced by a newer connection
// for the same user) cleans up its subscriptions without touching presence.
func (h *Hub) HandleDisconnect(connID string) {
	h.mu.Lock()
	keys := h.subKeys[connID]
	delete(h.subKeys, connID)
	h.mu.Unlock()

	for _, key := range keys {
		if err := h.bus.Unsubscribe(key); err != nil {
			log.Printf("realtime: unsubscribe %s: %v", key, err)
		}
	}

	userID := h.registry.RemoveConn(connID)
	metrics.OnlineUsers.Set(float64(h.registry.Count()))
	if userID == "" {
		return
	}

	if h.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := h.mirror.SetOffline(ctx, userID); err != nil {
			log.Printf("realtime: mirror set offline user=%s: %v", userID, err)
		}
		cancel()
	}

	h.publishStatus(userID, protocol.StatusOffline)
	log.Printf("realtime: user=%s offline conn=%s", userID, connID)
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

func (h *Hub) isOnline(ctx context.Context, userID string) bool {
	t := presence.Tracker{Registry: h.registry, Mirror: h.mirror}
	return t.IsOnline(ctx, userID)
}

// publishStatus announces a presence transition on the shared status
// subject. Every instance (this one included) broadcasts it to its clients.
func (h *Hub) publishStatus(userID, status string) {
	data, err := protocol.NewServerMessage(protocol.TypeUserStatus, protocol.UserStatusMsg{
		UserID: userID,
		Status: status,
	})
	if err != nil {
		log.Printf("realtime: build user-status event: %v", err)
		return
	}
	if err := h.bus.Publish(messaging.SubjectStatus, data); err != nil {
		log.Printf("realtime: status publish user=%s: %v", userID, err)
	}
}

func (h *Hub) trackSub(connID, key string) {
	h.mu.Lock()
	h.subKeys[connID] = append(h.subKeys[connID], key)
	h.mu.Unlock()
}

// dropSub tears down a single tracked subscription for a connection. A no-op
// if the connection never held that key.
func (h *Hub) dropSub(connID, key string) {
	h.mu.Lock()
	keys := h.subKeys[connID]
	found := false
	for i, k := range keys {
		if k == key {
			h.subKeys[connID] = append(keys[:i], keys[i+1:]...)
			found = true
			break
		}
	}
	h.mu.Unlock()

	if !found {
		return
	}
	if err := h.bus.Unsubscribe(key); err != nil {
		log.Printf("realtime: unsubscribe %s: %v", key, err)
	}
}

func (h *Hub) sendError(connID, code, msg string) {
	data, err := protocol.NewServerMessage(protocol.TypeError, protocol.ErrorMsg{
		Code:    code,
		Message: msg,
	})
	if err != nil {
		log.Printf("realtime: build error event: %v", err)
		return
	}
	if err := h.transport.SendMessage(connID, data); err != nil {
		log.Printf("realtime: send error event conn=%s: %v", connID, err)
	}
}

func (h *Hub) sendRateLimited(connID string, retryAfter time.Duration) {
	data, err := protocol.NewServerMessage(protocol.TypeRateLimited, protocol.RateLimitedMsg{
		RetryAfter: int(retryAfter.Seconds()),
	})
	if err != nil {
		log.Printf("realtime: build rate-limited event: %v", err)
		return
	}
	if err := h.transport.SendMessage(connID, data); err != nil {
		log.Printf("realtime: send rate-limited event conn=%s: %v", connID, err)
	}
}

// refreshLoop extends the shared online markers for every locally-online
// user so they outlive the marker TTL while connected.
func (h *Hub) refreshLoop() {
	ticker := time.NewTicker(mirrorRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.mu.Lock()
			conns := make([]string, 0, len(h.subKeys))
			for connID := range h.subKeys {
				conns = append(conns, connID)
			}
			h.mu.Unlock()

			for _, connID := range conns {
				userID := h.registry.UserFor(connID)
				if userID == "" {
					continue
				}
				ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
				if err := h.mirror.Refresh(ctx, userID); err != nil {
					log.Printf("realtime: mirror refresh user=%s: %v", userID, err)
				}
				cancel()
			}
		}
	}
}

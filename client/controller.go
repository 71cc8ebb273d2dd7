package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/careerlink/messaging/internal/httpapi"
	"github.com/careerlink/messaging/internal/protocol"
)

// EventSender emits typed events to the server. Implemented by *Socket.
type EventSender interface {
	Emit(payload interface{}) error
}

// ThreadFetcher loads persisted history. Implemented by *API.
type ThreadFetcher interface {
	FetchThread(ctx context.Context, otherID string) ([]httpapi.ThreadMessage, error)
}

// ThreadEntry is one message in the controller's local view of the active
// conversation.
type ThreadEntry struct {
	SenderID   string
	ReceiverID string
	Body       string
	Timestamp  time.Time
}

// Callbacks are invoked from the socket read loop as server events arrive.
// Any of them may be nil. They run outside the controller's lock, so reading
// accessors like Thread is safe from inside a callback.
type Callbacks struct {
	// ThreadChanged fires after the active thread's local list changes.
	ThreadChanged func()
	// InboxStale fires when any conversation received a message and the
	// inbox overview should be refetched.
	InboxStale func()
	// PeerTyping reports the active counterpart's typing indicator.
	PeerTyping func(typing bool)
	// PeerStatus reports presence transitions for any user.
	PeerStatus func(userID, status string)
	// MessagesRead fires when the counterpart read the caller's messages.
	MessagesRead func(readBy string)
	// Notified fires on a new-message-notification from a conversation other
	// than the active one, or when no conversation is selected.
	Notified func(senderID, body string)
}

// Controller drives one user's chat session: it announces the user, tracks
// the selected counterpart, keeps the active thread's message list current,
// and debounces outbound typing signals.
type Controller struct {
	userID string
	sock   EventSender
	api    ThreadFetcher
	cb     Callbacks
	typing *typingNotifier

	mu         sync.Mutex
	activePeer string
	thread     []ThreadEntry
}

// NewController creates a controller for the given user. quiet is the typing
// debounce interval; pass 0 for the default 2 seconds.
func NewController(userID string, sock EventSender, api ThreadFetcher, cb Callbacks, quiet time.Duration) *Controller {
	if quiet <= 0 {
		quiet = DefaultTypingQuiet
	}
	c := &Controller{userID: userID, sock: sock, api: api, cb: cb}
	c.typing = newTypingNotifier(quiet, c.emitTyping, c.emitStopTyping)
	return c
}

// Announce identifies the user behind the connection. Call once after the
// socket is established; presence tracking starts here.
func (c *Controller) Announce() error {
	return c.sock.Emit(protocol.UserOnlineMsg{
		Type:   protocol.TypeUserOnline,
		UserID: c.userID,
	})
}

// SelectPeer switches the active conversation: seeds the local thread from
// persisted history, joins the conversation room, and marks the counterpart's
// messages as read.
func (c *Controller) SelectPeer(ctx context.Context, peerID string) error {
	msgs, err := c.api.FetchThread(ctx, peerID)
	if err != nil {
		return fmt.Errorf("client: select peer: %w", err)
	}

	thread := make([]ThreadEntry, len(msgs))
	for i, m := range msgs {
		thread[i] = ThreadEntry{
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Body:       m.Body,
			Timestamp:  m.CreatedAt,
		}
	}

	c.typing.Stop()
	c.mu.Lock()
	c.activePeer = peerID
	c.thread = thread
	c.mu.Unlock()

	if err := c.sock.Emit(protocol.JoinChatMsg{
		Type:       protocol.TypeJoinChat,
		SenderID:   c.userID,
		ReceiverID: peerID,
	}); err != nil {
		return fmt.Errorf("client: join chat: %w", err)
	}
	if err := c.sock.Emit(protocol.MarkReadMsg{
		Type:       protocol.TypeMarkRead,
		SenderID:   c.userID,
		ReceiverID: peerID,
	}); err != nil {
		return fmt.Errorf("client: mark read: %w", err)
	}

	if c.cb.ThreadChanged != nil {
		c.cb.ThreadChanged()
	}
	return nil
}

// Send emits a message to the active counterpart. The local thread is not
// updated here; the server echoes the message back to the room and the
// receive handler appends it, so sent and received messages follow one path.
func (c *Controller) Send(body string) error {
	c.mu.Lock()
	peer := c.activePeer
	c.mu.Unlock()
	if peer == "" {
		return fmt.Errorf("client: no conversation selected")
	}

	c.typing.Stop()
	return c.sock.Emit(protocol.SendMessageMsg{
		Type:       protocol.TypeSendMessage,
		SenderID:   c.userID,
		ReceiverID: peer,
		Message:    body,
	})
}

// Keystroke registers input activity in the compose field, driving the
// debounced typing signal.
func (c *Controller) Keystroke() {
	c.mu.Lock()
	peer := c.activePeer
	c.mu.Unlock()
	if peer == "" {
		return
	}
	c.typing.Keystroke()
}

// Blur clears the typing signal immediately, for when the compose field
// loses focus or is emptied.
func (c *Controller) Blur() {
	c.typing.Stop()
}

// ActivePeer returns the selected counterpart, or "".
func (c *Controller) ActivePeer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activePeer
}

// Thread returns a copy of the active conversation's local message list.
func (c *Controller) Thread() []ThreadEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ThreadEntry, len(c.thread))
	copy(out, c.thread)
	return out
}

// Bind registers the controller's event handlers on the socket. Call before
// Announce so no early event is missed.
func (c *Controller) Bind(sock *Socket) {
	sock.On(protocol.TypeReceiveMessage, func(raw json.RawMessage) {
		var m protocol.ReceiveMessageMsg
		if json.Unmarshal(raw, &m) == nil {
			c.HandleReceiveMessage(m)
		}
	})
	sock.On(protocol.TypeNotification, func(raw json.RawMessage) {
		var m protocol.NotificationMsg
		if json.Unmarshal(raw, &m) == nil {
			c.HandleNotification(m)
		}
	})
	sock.On(protocol.TypeUserTyping, func(raw json.RawMessage) {
		var m protocol.UserTypingMsg
		if json.Unmarshal(raw, &m) == nil {
			c.HandlePeerTyping(m.SenderID, true)
		}
	})
	sock.On(protocol.TypeUserStopTyping, func(raw json.RawMessage) {
		var m protocol.UserStopTypingMsg
		if json.Unmarshal(raw, &m) == nil {
			c.HandlePeerTyping(m.SenderID, false)
		}
	})
	sock.On(protocol.TypeUserStatus, func(raw json.RawMessage) {
		var m protocol.UserStatusMsg
		if json.Unmarshal(raw, &m) == nil && c.cb.PeerStatus != nil {
			c.cb.PeerStatus(m.UserID, m.Status)
		}
	})
	sock.On(protocol.TypeMessagesRead, func(raw json.RawMessage) {
		var m protocol.MessagesReadMsg
		if json.Unmarshal(raw, &m) == nil && c.cb.MessagesRead != nil {
			c.cb.MessagesRead(m.ReadBy)
		}
	})
}

// HandleReceiveMessage appends a live message to the local thread when it
// belongs to the active conversation, and flags the inbox stale either way.
func (c *Controller) HandleReceiveMessage(m protocol.ReceiveMessageMsg) {
	c.mu.Lock()
	active := c.activePeer != "" &&
		(m.SenderID == c.activePeer || m.ReceiverID == c.activePeer) &&
		(m.SenderID == c.userID || m.ReceiverID == c.userID)
	if active {
		c.thread = append(c.thread, ThreadEntry{
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Body:       m.Message,
			Timestamp:  time.Unix(m.Timestamp, 0).UTC(),
		})
	}
	c.mu.Unlock()

	if active && c.cb.ThreadChanged != nil {
		c.cb.ThreadChanged()
	}
	if c.cb.InboxStale != nil {
		c.cb.InboxStale()
	}
}

// HandleNotification surfaces an alert for messages outside the active
// conversation. Alerts for the conversation on screen are suppressed; the
// message itself already arrived through the room.
func (c *Controller) HandleNotification(m protocol.NotificationMsg) {
	c.mu.Lock()
	suppress := c.activePeer != "" && m.SenderID == c.activePeer
	c.mu.Unlock()

	if !suppress && c.cb.Notified != nil {
		c.cb.Notified(m.SenderID, m.Message)
	}
}

// HandlePeerTyping relays the counterpart's typing state. Indicators from
// users other than the active counterpart are ignored.
func (c *Controller) HandlePeerTyping(senderID string, typing bool) {
	c.mu.Lock()
	relevant := c.activePeer != "" && senderID == c.activePeer
	c.mu.Unlock()

	if relevant && c.cb.PeerTyping != nil {
		c.cb.PeerTyping(typing)
	}
}

func (c *Controller) emitTyping() {
	c.mu.Lock()
	peer := c.activePeer
	c.mu.Unlock()
	if peer == "" {
		return
	}
	_ = c.sock.Emit(protocol.TypingMsg{
		Type:       protocol.TypeTyping,
		SenderID:   c.userID,
		ReceiverID: peer,
	})
}

func (c *Controller) emitStopTyping() {
	c.mu.Lock()
	peer := c.activePeer
	c.mu.Unlock()
	if peer == "" {
		return
	}
	_ = c.sock.Emit(protocol.StopTypingMsg{
		Type:       protocol.TypeStopTyping,
		SenderID:   c.userID,
		ReceiverID: peer,
	})
}

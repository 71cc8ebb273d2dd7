// Package protocol defines the WebSocket event types and structures exchanged
// between the messaging client and server. All events are serialized as JSON
// and follow a consistent envelope format with a type discriminator.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Event type constants
// ---------------------------------------------------------------------------

// Client -> Server event types.
const (
	TypeUserOnline  = "user-online"
	TypeJoinChat    = "join-chat"
	TypeSendMessage = "send-message"
	TypeTyping      = "typing"
	TypeStopTyping  = "stop-typing"
	TypeMarkRead    = "mark-read"
	TypePing        = "ping"
)

// Server -> Client event types.
const (
	TypeConnected      = "connected"
	TypeUserStatus     = "user-status"
	TypeReceiveMessage = "receive-message"
	TypeNotification   = "new-message-notification"
	TypeUserTyping     = "user-typing"
	TypeUserStopTyping = "user-stop-typing"
	TypeMessagesRead   = "messages-read"
	TypeRateLimited    = "rate-limited"
	TypeError          = "error"
	TypePong           = "pong"
)

// Presence status values carried by user-status events.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// ---------------------------------------------------------------------------
// Envelope — used for initial JSON parsing to extract the type discriminator.
// ---------------------------------------------------------------------------

// Envelope holds the event type and the raw JSON payload for deferred
// parsing into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements the json.Unmarshaler interface. It captures the
// full raw bytes and extracts only the "type" field so that the rest of the
// payload can be decoded later into the appropriate concrete struct.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	// Capture the full raw message for deferred parsing.
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	// Extract only the type field.
	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Client -> Server event structs
// ---------------------------------------------------------------------------

// UserOnlineMsg announces the authenticated user behind a fresh connection.
// Presence tracking starts here, not at the transport handshake.
type UserOnlineMsg struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// JoinChatMsg subscribes the connection to the conversation room for the
// given pair. The server derives the canonical room key from the two IDs.
type JoinChatMsg struct {
	Type       string `json:"type"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

// SendMessageMsg carries a new direct message. The server persists it and
// fans it out to the conversation room.
type SendMessageMsg struct {
	Type       string `json:"type"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
}

// TypingMsg signals that the sender started typing to the receiver.
type TypingMsg struct {
	Type       string `json:"type"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

// StopTypingMsg signals that the sender stopped typing.
type StopTypingMsg struct {
	Type       string `json:"type"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

// MarkReadMsg asks the server to mark every message from receiverId to
// senderId as read. senderId is the user doing the reading.
type MarkReadMsg struct {
	Type       string `json:"type"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

// PingMsg is a client-initiated keepalive ping.
type PingMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Server -> Client event structs
// ---------------------------------------------------------------------------

// ConnectedMsg is sent by the server when a new connection is established.
type ConnectedMsg struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connectionId"`
}

// UserStatusMsg broadcasts a presence transition to all connected clients.
type UserStatusMsg struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	Status string `json:"status"` // online | offline
}

// ReceiveMessageMsg delivers a message to every subscriber of the
// conversation room, the sender's own connection included.
type ReceiveMessageMsg struct {
	Type       string `json:"type"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
}

// NotificationMsg alerts a receiver who is online but not currently viewing
// the conversation room.
type NotificationMsg struct {
	Type     string `json:"type"`
	SenderID string `json:"senderId"`
	Message  string `json:"message"`
}

// UserTypingMsg relays a typing indicator to its intended receiver.
type UserTypingMsg struct {
	Type     string `json:"type"`
	SenderID string `json:"senderId"`
}

// UserStopTypingMsg clears a typing indicator.
type UserStopTypingMsg struct {
	Type     string `json:"type"`
	SenderID string `json:"senderId"`
}

// MessagesReadMsg confirms to the original sender that the counterpart has
// read their messages.
type MessagesReadMsg struct {
	Type   string `json:"type"`
	ReadBy string `json:"readBy"`
}

// RateLimitedMsg is sent when the client exceeded the send throttle.
type RateLimitedMsg struct {
	Type       string `json:"type"`
	RetryAfter int    `json:"retryAfter"`
}

// ErrorMsg is sent by the server to communicate an error condition to the
// originating connection only.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseClientMessage parses raw WebSocket bytes into a typed client event.
// It returns the event type string, the decoded struct, and any error
// encountered during parsing. An error is returned for unknown or
// server-only event types.
func ParseClientMessage(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse message: %w", err)
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeUserOnline:
		var m UserOnlineMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeJoinChat:
		var m JoinChatMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeSendMessage:
		var m SendMessageMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeTyping:
		var m TypingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeStopTyping:
		var m StopTypingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeMarkRead:
		var m MarkReadMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypePing:
		var m PingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, fmt.Errorf("protocol: unknown client event type: %q", env.Type)
	}

	if err != nil {
		return env.Type, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env.Type, msg, nil
}

// NewServerMessage creates a JSON-encoded byte slice for a server event.
// The msgType is injected into the payload under the "type" key. The payload
// should be one of the server event structs; this function marshals it to
// JSON, injects the type field, and returns the final bytes.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	// Marshal the payload struct to a generic map so we can ensure the "type"
	// field is present and correct.
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = msgType

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}

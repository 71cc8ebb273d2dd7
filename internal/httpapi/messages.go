package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/careerlink/messaging/internal/inbox"
	"github.com/careerlink/messaging/internal/message"
	"github.com/careerlink/messaging/internal/messenger"
	"github.com/careerlink/messaging/internal/metrics"
	"github.com/careerlink/messaging/internal/user"
)

// SendRequest is the send-message request body.
type SendRequest struct {
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
}

// ThreadMessage is a persisted message with populated display fields for both
// participants.
type ThreadMessage struct {
	message.Message
	Sender   user.User `json:"sender"`
	Receiver user.User `json:"receiver"`
}

// ConversationSummary is one inbox row with the counterpart's display fields
// populated.
type ConversationSummary struct {
	User            user.User `json:"user"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
	UnreadCount     int       `json:"unreadCount"`
}

// SendMessage appends a message from the caller to the receiver and fans it
// out to the conversation room. Returns the stored message.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	senderID := CallerID(r.Context())

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ReceiverID == "" {
		h.Error(w, http.StatusBadRequest, "receiverId is required")
		return
	}
	if err := message.ValidateBody(req.Message); err != nil {
		h.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.sender.Send(r.Context(), senderID, req.ReceiverID, req.Message)
	if err != nil {
		if errors.Is(err, messenger.ErrReceiverNotFound) {
			h.Error(w, http.StatusNotFound, "receiver not found")
			return
		}
		log.Printf("httpapi: send %s->%s: %v", senderID, req.ReceiverID, err)
		h.Error(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	h.JSON(w, http.StatusCreated, m)
}

// Thread returns the full conversation between the caller and the user in
// the URL, ascending by time, with sender and receiver display fields
// populated on every message.
func (h *Handler) Thread(w http.ResponseWriter, r *http.Request) {
	callerID := CallerID(r.Context())
	otherID := chi.URLParam(r, "userID")

	msgs, err := h.messages.Thread(r.Context(), callerID, otherID)
	if err != nil {
		log.Printf("httpapi: thread %s/%s: %v", callerID, otherID, err)
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	users, err := h.users.GetMany(r.Context(), []string{callerID, otherID})
	if err != nil {
		log.Printf("httpapi: thread users %s/%s: %v", callerID, otherID, err)
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	out := make([]ThreadMessage, len(msgs))
	for i, m := range msgs {
		out[i] = ThreadMessage{
			Message:  m,
			Sender:   profileOrStub(users, m.SenderID),
			Receiver: profileOrStub(users, m.ReceiverID),
		}
	}
	h.JSON(w, http.StatusOK, out)
}

// Conversations returns the caller's inbox: one row per counterpart, most
// recent conversation first.
func (h *Handler) Conversations(w http.ResponseWriter, r *http.Request) {
	callerID := CallerID(r.Context())
	start := time.Now()

	msgs, err := h.messages.AllForUser(r.Context(), callerID)
	if err != nil {
		log.Printf("httpapi: conversations %s: %v", callerID, err)
		h.Error(w, http.StatusInternalServerError, "failed to fetch conversations")
		return
	}

	summaries := inbox.Build(callerID, msgs)
	metrics.InboxBuildLatency.Observe(time.Since(start).Seconds())

	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.UserID
	}
	users, err := h.users.GetMany(r.Context(), ids)
	if err != nil {
		log.Printf("httpapi: conversation users %s: %v", callerID, err)
		h.Error(w, http.StatusInternalServerError, "failed to fetch conversations")
		return
	}

	out := make([]ConversationSummary, len(summaries))
	for i, s := range summaries {
		out[i] = ConversationSummary{
			User:            profileOrStub(users, s.UserID),
			LastMessage:     s.LastMessage,
			LastMessageTime: s.LastMessageTime,
			UnreadCount:     s.UnreadCount,
		}
	}
	h.JSON(w, http.StatusOK, out)
}

// profileOrStub falls back to an ID-only profile when the directory has no
// record, so a deleted counterpart never breaks history rendering.
func profileOrStub(users map[string]user.User, id string) user.User {
	if u, ok := users[id]; ok {
		return u
	}
	return user.User{ID: id}
}

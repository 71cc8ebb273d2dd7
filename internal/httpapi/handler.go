// Package httpapi exposes the message history and send operations over REST.
// The upstream auth proxy terminates sessions and forwards the caller's
// identity in the X-User-ID header; everything under /api/v1/messages
// requires it.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/careerlink/messaging/internal/message"
	"github.com/careerlink/messaging/internal/user"
)

// Sender is the unified send path. Implemented by *messenger.Service.
type Sender interface {
	Send(ctx context.Context, senderID, receiverID, body string) (*message.Message, error)
}

// MessageReader reads persisted history. Implemented by *message.Store.
type MessageReader interface {
	Thread(ctx context.Context, userA, userB string) ([]message.Message, error)
	AllForUser(ctx context.Context, userID string) ([]message.Message, error)
}

// Directory resolves user display fields. Implemented by *user.Directory.
type Directory interface {
	Get(ctx context.Context, id string) (*user.User, error)
	GetMany(ctx context.Context, ids []string) (map[string]user.User, error)
}

// Handler holds the API's collaborators.
type Handler struct {
	sender   Sender
	messages MessageReader
	users    Directory
}

// NewHandler creates an API handler.
func NewHandler(sender Sender, messages MessageReader, users Directory) *Handler {
	return &Handler{sender: sender, messages: messages, users: users}
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes a JSON response with the given status.
func (h *Handler) JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpapi: write response: %v", err)
	}
}

// Error writes a JSON error response.
func (h *Handler) Error(w http.ResponseWriter, status int, msg string) {
	h.JSON(w, status, ErrorResponse{Error: msg})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

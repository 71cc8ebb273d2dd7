package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/careerlink/messaging/internal/httpapi"
	"github.com/careerlink/messaging/internal/message"
)

// API is a thin client for the messaging REST endpoints. It identifies the
// caller with the X-User-ID header, matching what the auth proxy would
// forward in production.
type API struct {
	BaseURL string
	UserID  string
	HTTP    *http.Client
}

// NewAPI creates a REST client for the given base URL and caller identity.
func NewAPI(baseURL, userID string) *API {
	return &API{
		BaseURL: baseURL,
		UserID:  userID,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchThread returns the full conversation with the given user, ascending
// by time, with display fields populated.
func (a *API) FetchThread(ctx context.Context, otherID string) ([]httpapi.ThreadMessage, error) {
	var out []httpapi.ThreadMessage
	err := a.do(ctx, http.MethodGet, "/api/v1/messages/"+otherID, nil, http.StatusOK, &out)
	if err != nil {
		return nil, fmt.Errorf("client: fetch thread: %w", err)
	}
	return out, nil
}

// FetchConversations returns the caller's inbox overview.
func (a *API) FetchConversations(ctx context.Context) ([]httpapi.ConversationSummary, error) {
	var out []httpapi.ConversationSummary
	err := a.do(ctx, http.MethodGet, "/api/v1/messages/conversations/all", nil, http.StatusOK, &out)
	if err != nil {
		return nil, fmt.Errorf("client: fetch conversations: %w", err)
	}
	return out, nil
}

// Send appends a message through the REST path and returns the stored
// record. Most interactive clients send over the socket instead; this exists
// for callers without a live connection.
func (a *API) Send(ctx context.Context, receiverID, body string) (*message.Message, error) {
	req := httpapi.SendRequest{ReceiverID: receiverID, Message: body}
	var out message.Message
	err := a.do(ctx, http.MethodPost, "/api/v1/messages/send", req, http.StatusCreated, &out)
	if err != nil {
		return nil, fmt.Errorf("client: send: %w", err)
	}
	return &out, nil
}

func (a *API) do(ctx context.Context, method, path string, body interface{}, wantStatus int, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set(httpapi.IdentityHeader, a.UserID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var apiErr httpapi.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

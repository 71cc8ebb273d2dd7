package protocol

import (
	"encoding/json"
	"testing"
)

func TestParseClientMessage_SendMessage(t *testing.T) {
	input := []byte(`{"type":"send-message","senderId":"u1","receiverId":"u2","message":"Hello!"}`)

	msgType, msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypeSendMessage {
		t.Fatalf("expected type %q, got %q", TypeSendMessage, msgType)
	}

	sm, ok := msg.(SendMessageMsg)
	if !ok {
		t.Fatalf("expected SendMessageMsg, got %T", msg)
	}
	if sm.SenderID != "u1" {
		t.Errorf("expected senderId %q, got %q", "u1", sm.SenderID)
	}
	if sm.ReceiverID != "u2" {
		t.Errorf("expected receiverId %q, got %q", "u2", sm.ReceiverID)
	}
	if sm.Message != "Hello!" {
		t.Errorf("expected message %q, got %q", "Hello!", sm.Message)
	}
}

func TestParseClientMessage_UserOnline(t *testing.T) {
	input := []byte(`{"type":"user-online","userId":"u1"}`)

	msgType, msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypeUserOnline {
		t.Fatalf("expected type %q, got %q", TypeUserOnline, msgType)
	}

	om, ok := msg.(UserOnlineMsg)
	if !ok {
		t.Fatalf("expected UserOnlineMsg, got %T", msg)
	}
	if om.UserID != "u1" {
		t.Errorf("expected userId %q, got %q", "u1", om.UserID)
	}
}

func TestNewServerMessage_ReceiveMessage(t *testing.T) {
	payload := ReceiveMessageMsg{
		SenderID:   "u1",
		ReceiverID: "u2",
		Message:    "hello there",
		Timestamp:  1756400000,
	}

	data, err := NewServerMessage(TypeReceiveMessage, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Decode back and verify structure.
	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	if result["type"] != TypeReceiveMessage {
		t.Errorf("expected type %q, got %v", TypeReceiveMessage, result["type"])
	}
	if result["senderId"] != "u1" {
		t.Errorf("expected senderId %q, got %v", "u1", result["senderId"])
	}
	if result["message"] != "hello there" {
		t.Errorf("expected message %q, got %v", "hello there", result["message"])
	}

	ts, ok := result["timestamp"].(float64)
	if !ok {
		t.Fatalf("expected timestamp to be a number, got %T", result["timestamp"])
	}
	if int64(ts) != 1756400000 {
		t.Errorf("expected timestamp 1756400000, got %v", ts)
	}
}

func TestNewServerMessage_UserStatus(t *testing.T) {
	data, err := NewServerMessage(TypeUserStatus, UserStatusMsg{
		UserID: "u1",
		Status: StatusOffline,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded UserStatusMsg
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if decoded.Type != TypeUserStatus {
		t.Errorf("expected type %q, got %q", TypeUserStatus, decoded.Type)
	}
	if decoded.UserID != "u1" || decoded.Status != StatusOffline {
		t.Errorf("unexpected payload: %+v", decoded)
	}
}

func TestParseClientMessage_UnknownType(t *testing.T) {
	input := []byte(`{"type":"unknown-type","data":"something"}`)

	msgType, msg, err := ParseClientMessage(input)
	if err == nil {
		t.Fatal("expected an error for unknown event type, got nil")
	}
	if msg != nil {
		t.Errorf("expected nil message for unknown type, got %v", msg)
	}
	if msgType != "unknown-type" {
		t.Errorf("expected returned type %q, got %q", "unknown-type", msgType)
	}
}

func TestEnvelope_MissingType(t *testing.T) {
	input := []byte(`{"data":"no type field"}`)
	var env Envelope
	if err := json.Unmarshal(input, &env); err == nil {
		t.Fatal("expected error for missing type field, got nil")
	}
}

func TestEnvelope_InvalidJSON(t *testing.T) {
	input := []byte(`{invalid json}`)
	var env Envelope
	if err := json.Unmarshal(input, &env); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestParseClientMessage_AllTypes(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		wantType string
	}{
		{"user-online", `{"type":"user-online","userId":"u1"}`, TypeUserOnline},
		{"join-chat", `{"type":"join-chat","senderId":"u1","receiverId":"u2"}`, TypeJoinChat},
		{"send-message", `{"type":"send-message","senderId":"u1","receiverId":"u2","message":"hi"}`, TypeSendMessage},
		{"typing", `{"type":"typing","senderId":"u1","receiverId":"u2"}`, TypeTyping},
		{"stop-typing", `{"type":"stop-typing","senderId":"u1","receiverId":"u2"}`, TypeStopTyping},
		{"mark-read", `{"type":"mark-read","senderId":"u1","receiverId":"u2"}`, TypeMarkRead},
		{"ping", `{"type":"ping"}`, TypePing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msgType, msg, err := ParseClientMessage([]byte(tc.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msgType != tc.wantType {
				t.Errorf("expected type %q, got %q", tc.wantType, msgType)
			}
			if msg == nil {
				t.Error("expected non-nil message")
			}
		})
	}
}

package inbox

import (
	"testing"
	"time"

	"github.com/careerlink/messaging/internal/message"
)

func ts(sec int) time.Time {
	return time.Date(2026, 8, 1, 12, 0, sec, 0, time.UTC)
}

// Input to Build is always descending by creation time, as AllForUser returns.
func TestBuildSingleConversation(t *testing.T) {
	msgs := []message.Message{
		{ID: "m2", SenderID: "bob", ReceiverID: "alice", Body: "hi back", Read: false, CreatedAt: ts(2)},
		{ID: "m1", SenderID: "alice", ReceiverID: "bob", Body: "hello", Read: true, CreatedAt: ts(1)},
	}

	out := Build("alice", msgs)
	if len(out) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(out))
	}

	s := out[0]
	if s.UserID != "bob" {
		t.Errorf("expected counterpart bob, got %q", s.UserID)
	}
	if s.LastMessage != "hi back" {
		t.Errorf("expected last message 'hi back', got %q", s.LastMessage)
	}
	if !s.LastMessageTime.Equal(ts(2)) {
		t.Errorf("expected last message time %v, got %v", ts(2), s.LastMessageTime)
	}
	if s.UnreadCount != 1 {
		t.Errorf("expected unread count 1, got %d", s.UnreadCount)
	}
}

func TestBuildOrdersByRecency(t *testing.T) {
	msgs := []message.Message{
		{ID: "m3", SenderID: "carol", ReceiverID: "alice", Body: "newest", CreatedAt: ts(3)},
		{ID: "m2", SenderID: "alice", ReceiverID: "bob", Body: "middle", CreatedAt: ts(2)},
		{ID: "m1", SenderID: "dave", ReceiverID: "alice", Body: "oldest", CreatedAt: ts(1)},
	}

	out := Build("alice", msgs)
	if len(out) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(out))
	}

	want := []string{"carol", "bob", "dave"}
	for i, s := range out {
		if s.UserID != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], s.UserID)
		}
	}
}

func TestBuildUnreadAccumulates(t *testing.T) {
	msgs := []message.Message{
		{ID: "m4", SenderID: "bob", ReceiverID: "alice", Body: "four", Read: false, CreatedAt: ts(4)},
		{ID: "m3", SenderID: "bob", ReceiverID: "alice", Body: "three", Read: false, CreatedAt: ts(3)},
		{ID: "m2", SenderID: "alice", ReceiverID: "bob", Body: "two", Read: false, CreatedAt: ts(2)},
		{ID: "m1", SenderID: "bob", ReceiverID: "alice", Body: "one", Read: true, CreatedAt: ts(1)},
	}

	out := Build("alice", msgs)
	if len(out) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(out))
	}
	// m2 is alice's own unread message to bob; it must not count against her.
	if out[0].UnreadCount != 2 {
		t.Errorf("expected unread count 2, got %d", out[0].UnreadCount)
	}
	if out[0].LastMessage != "four" {
		t.Errorf("expected last message 'four', got %q", out[0].LastMessage)
	}
}

func TestBuildEmptyHistory(t *testing.T) {
	out := Build("alice", nil)
	if out == nil {
		t.Fatal("expected non-nil empty slice, got nil")
	}
	if len(out) != 0 {
		t.Fatalf("expected 0 summaries, got %d", len(out))
	}
}

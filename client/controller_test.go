package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/careerlink/messaging/internal/httpapi"
	"github.com/careerlink/messaging/internal/message"
	"github.com/careerlink/messaging/internal/protocol"
)

type recordingSender struct {
	mu     sync.Mutex
	events []interface{}
}

func (r *recordingSender) Emit(payload interface{}) error {
	r.mu.Lock()
	r.events = append(r.events, payload)
	r.mu.Unlock()
	return nil
}

func (r *recordingSender) ofType(match func(interface{}) bool) []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []interface{}
	for _, e := range r.events {
		if match(e) {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingSender) typingEvents() (starts, stops int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		switch e.(type) {
		case protocol.TypingMsg:
			starts++
		case protocol.StopTypingMsg:
			stops++
		}
	}
	return
}

type fixedFetcher struct {
	thread []httpapi.ThreadMessage
}

func (f *fixedFetcher) FetchThread(_ context.Context, _ string) ([]httpapi.ThreadMessage, error) {
	return f.thread, nil
}

func seedThread() []httpapi.ThreadMessage {
	return []httpapi.ThreadMessage{
		{Message: message.Message{ID: "m1", SenderID: "alice", ReceiverID: "bob", Body: "hi", CreatedAt: time.Unix(1, 0).UTC()}},
		{Message: message.Message{ID: "m2", SenderID: "bob", ReceiverID: "alice", Body: "hey", CreatedAt: time.Unix(2, 0).UTC()}},
	}
}

func TestSelectPeerSeedsThreadAndJoins(t *testing.T) {
	sender := &recordingSender{}
	c := NewController("alice", sender, &fixedFetcher{thread: seedThread()}, Callbacks{}, 0)

	if err := c.SelectPeer(context.Background(), "bob"); err != nil {
		t.Fatalf("select peer: %v", err)
	}

	thread := c.Thread()
	if len(thread) != 2 {
		t.Fatalf("expected 2 seeded messages, got %d", len(thread))
	}
	if thread[0].Body != "hi" || thread[1].Body != "hey" {
		t.Errorf("unexpected thread order: %+v", thread)
	}

	joins := sender.ofType(func(e interface{}) bool { _, ok := e.(protocol.JoinChatMsg); return ok })
	if len(joins) != 1 {
		t.Fatalf("expected 1 join-chat, got %d", len(joins))
	}
	marks := sender.ofType(func(e interface{}) bool { _, ok := e.(protocol.MarkReadMsg); return ok })
	if len(marks) != 1 {
		t.Fatalf("expected 1 mark-read, got %d", len(marks))
	}
	mark := marks[0].(protocol.MarkReadMsg)
	if mark.SenderID != "alice" || mark.ReceiverID != "bob" {
		t.Errorf("mark-read should identify the reader as sender: %+v", mark)
	}
}

func TestReceiveAppendsToActiveThread(t *testing.T) {
	sender := &recordingSender{}
	var threadChanged, inboxStale int
	c := NewController("alice", sender, &fixedFetcher{}, Callbacks{
		ThreadChanged: func() { threadChanged++ },
		InboxStale:    func() { inboxStale++ },
	}, 0)
	if err := c.SelectPeer(context.Background(), "bob"); err != nil {
		t.Fatalf("select peer: %v", err)
	}
	threadChanged = 0

	c.HandleReceiveMessage(protocol.ReceiveMessageMsg{
		SenderID: "bob", ReceiverID: "alice", Message: "live one", Timestamp: 10,
	})

	thread := c.Thread()
	if len(thread) != 1 || thread[0].Body != "live one" {
		t.Fatalf("expected live message appended, got %+v", thread)
	}
	if threadChanged != 1 {
		t.Errorf("ThreadChanged fired %d times, want 1", threadChanged)
	}
	if inboxStale != 1 {
		t.Errorf("InboxStale fired %d times, want 1", inboxStale)
	}
}

func TestReceiveForOtherConversationOnlyStalesInbox(t *testing.T) {
	sender := &recordingSender{}
	var threadChanged, inboxStale int
	c := NewController("alice", sender, &fixedFetcher{}, Callbacks{
		ThreadChanged: func() { threadChanged++ },
		InboxStale:    func() { inboxStale++ },
	}, 0)
	if err := c.SelectPeer(context.Background(), "bob"); err != nil {
		t.Fatalf("select peer: %v", err)
	}
	threadChanged = 0

	c.HandleReceiveMessage(protocol.ReceiveMessageMsg{
		SenderID: "carol", ReceiverID: "alice", Message: "elsewhere", Timestamp: 10,
	})

	if len(c.Thread()) != 0 {
		t.Fatal("message for another conversation must not enter the active thread")
	}
	if threadChanged != 0 {
		t.Errorf("ThreadChanged fired %d times, want 0", threadChanged)
	}
	if inboxStale != 1 {
		t.Errorf("InboxStale fired %d times, want 1", inboxStale)
	}
}

func TestOwnEchoAppends(t *testing.T) {
	sender := &recordingSender{}
	c := NewController("alice", sender, &fixedFetcher{}, Callbacks{}, 0)
	if err := c.SelectPeer(context.Background(), "bob"); err != nil {
		t.Fatalf("select peer: %v", err)
	}

	if err := c.Send("outgoing"); err != nil {
		t.Fatalf("send: %v", err)
	}
	// Sending alone does not touch the local thread.
	if len(c.Thread()) != 0 {
		t.Fatal("thread must not change before the room echo arrives")
	}

	// The room echo carries the caller's own message back.
	c.HandleReceiveMessage(protocol.ReceiveMessageMsg{
		SenderID: "alice", ReceiverID: "bob", Message: "outgoing", Timestamp: 11,
	})
	thread := c.Thread()
	if len(thread) != 1 || thread[0].SenderID != "alice" {
		t.Fatalf("expected own echo appended, got %+v", thread)
	}
}

func TestNotificationSuppressedForActiveConversation(t *testing.T) {
	sender := &recordingSender{}
	var notified []string
	c := NewController("alice", sender, &fixedFetcher{}, Callbacks{
		Notified: func(senderID, _ string) { notified = append(notified, senderID) },
	}, 0)
	if err := c.SelectPeer(context.Background(), "bob"); err != nil {
		t.Fatalf("select peer: %v", err)
	}

	c.HandleNotification(protocol.NotificationMsg{SenderID: "bob", Message: "on screen"})
	c.HandleNotification(protocol.NotificationMsg{SenderID: "carol", Message: "elsewhere"})

	if len(notified) != 1 || notified[0] != "carol" {
		t.Errorf("expected only carol's notification, got %v", notified)
	}
}

func TestTypingDebounce(t *testing.T) {
	sender := &recordingSender{}
	quiet := 40 * time.Millisecond
	c := NewController("alice", sender, &fixedFetcher{}, Callbacks{}, quiet)
	if err := c.SelectPeer(context.Background(), "bob"); err != nil {
		t.Fatalf("select peer: %v", err)
	}

	// A burst of keystrokes emits exactly one typing signal.
	c.Keystroke()
	c.Keystroke()
	c.Keystroke()

	starts, stops := sender.typingEvents()
	if starts != 1 || stops != 0 {
		t.Fatalf("after burst: starts=%d stops=%d, want 1/0", starts, stops)
	}

	// After the quiet interval, stop-typing fires on its own.
	time.Sleep(quiet + 30*time.Millisecond)
	starts, stops = sender.typingEvents()
	if starts != 1 || stops != 1 {
		t.Fatalf("after quiet: starts=%d stops=%d, want 1/1", starts, stops)
	}

	// A fresh keystroke starts a new cycle.
	c.Keystroke()
	starts, stops = sender.typingEvents()
	if starts != 2 || stops != 1 {
		t.Fatalf("after new keystroke: starts=%d stops=%d, want 2/1", starts, stops)
	}
}

func TestTypingStopsImmediatelyOnSend(t *testing.T) {
	sender := &recordingSender{}
	c := NewController("alice", sender, &fixedFetcher{}, Callbacks{}, time.Minute)
	if err := c.SelectPeer(context.Background(), "bob"); err != nil {
		t.Fatalf("select peer: %v", err)
	}

	c.Keystroke()
	if err := c.Send("done typing"); err != nil {
		t.Fatalf("send: %v", err)
	}

	starts, stops := sender.typingEvents()
	if starts != 1 || stops != 1 {
		t.Fatalf("starts=%d stops=%d, want 1/1 (immediate stop on send)", starts, stops)
	}
}

func TestTypingStopsOnBlur(t *testing.T) {
	sender := &recordingSender{}
	c := NewController("alice", sender, &fixedFetcher{}, Callbacks{}, time.Minute)
	if err := c.SelectPeer(context.Background(), "bob"); err != nil {
		t.Fatalf("select peer: %v", err)
	}

	c.Keystroke()
	c.Blur()
	c.Blur() // second blur is a no-op

	starts, stops := sender.typingEvents()
	if starts != 1 || stops != 1 {
		t.Fatalf("starts=%d stops=%d, want 1/1", starts, stops)
	}
}

func TestPeerTypingFiltered(t *testing.T) {
	sender := &recordingSender{}
	var states []bool
	c := NewController("alice", sender, &fixedFetcher{}, Callbacks{
		PeerTyping: func(typing bool) { states = append(states, typing) },
	}, 0)
	if err := c.SelectPeer(context.Background(), "bob"); err != nil {
		t.Fatalf("select peer: %v", err)
	}

	c.HandlePeerTyping("bob", true)
	c.HandlePeerTyping("carol", true) // not the active counterpart
	c.HandlePeerTyping("bob", false)

	if len(states) != 2 || states[0] != true || states[1] != false {
		t.Errorf("unexpected typing states: %v", states)
	}
}

func TestSendWithoutPeerFails(t *testing.T) {
	sender := &recordingSender{}
	c := NewController("alice", sender, &fixedFetcher{}, Callbacks{}, 0)

	if err := c.Send("to nobody"); err == nil {
		t.Fatal("expected error when no conversation is selected")
	}
}

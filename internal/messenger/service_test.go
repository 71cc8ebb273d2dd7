package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/careerlink/messaging/internal/message"
	"github.com/careerlink/messaging/internal/protocol"
	"github.com/careerlink/messaging/internal/user"
)

type fakeStore struct {
	appended []message.Message
	fail     error
}

func (f *fakeStore) Append(_ context.Context, senderID, receiverID, body string) (*message.Message, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	m := message.Message{
		ID:         "msg-1",
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	f.appended = append(f.appended, m)
	return &m, nil
}

type fakeDirectory struct {
	known map[string]bool
}

func (f *fakeDirectory) Get(_ context.Context, id string) (*user.User, error) {
	if !f.known[id] {
		return nil, user.ErrNotFound
	}
	return &user.User{ID: id, Name: "User " + id}, nil
}

type published struct {
	subject string
	data    []byte
}

type fakeBus struct {
	events []published
}

func (f *fakeBus) Publish(subject string, data []byte) error {
	f.events = append(f.events, published{subject, data})
	return nil
}

func (f *fakeBus) bySubjectPrefix(prefix string) []published {
	var out []published
	for _, e := range f.events {
		if strings.HasPrefix(e.subject, prefix) {
			out = append(out, e)
		}
	}
	return out
}

type fakePresence struct {
	online map[string]bool
}

func (f *fakePresence) IsOnline(_ context.Context, userID string) bool {
	return f.online[userID]
}

func newTestService(online ...string) (*Service, *fakeStore, *fakeBus) {
	store := &fakeStore{}
	bus := &fakeBus{}
	pres := &fakePresence{online: map[string]bool{}}
	for _, u := range online {
		pres.online[u] = true
	}
	dir := &fakeDirectory{known: map[string]bool{"alice": true, "bob": true}}
	return NewService(store, dir, bus, pres), store, bus
}

func TestSendPersistsThenPublishes(t *testing.T) {
	svc, store, bus := newTestService("bob")

	m, err := svc.Send(context.Background(), "alice", "bob", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Body != "hello" || m.Read {
		t.Fatalf("unexpected stored message: %+v", m)
	}
	if len(store.appended) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(store.appended))
	}

	rooms := bus.bySubjectPrefix("chat.room.")
	if len(rooms) != 1 {
		t.Fatalf("expected 1 room event, got %d", len(rooms))
	}
	if rooms[0].subject != "chat.room.alice:bob" {
		t.Errorf("unexpected room subject %q", rooms[0].subject)
	}

	var ev protocol.ReceiveMessageMsg
	if err := json.Unmarshal(rooms[0].data, &ev); err != nil {
		t.Fatalf("failed to decode room event: %v", err)
	}
	if ev.Type != protocol.TypeReceiveMessage {
		t.Errorf("expected receive-message event, got %q", ev.Type)
	}
	if ev.SenderID != "alice" || ev.Message != "hello" {
		t.Errorf("unexpected event payload: %+v", ev)
	}
}

func TestSendNotifiesOnlineReceiver(t *testing.T) {
	svc, _, bus := newTestService("bob")

	if _, err := svc.Send(context.Background(), "alice", "bob", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	notifs := bus.bySubjectPrefix("chat.user.")
	if len(notifs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].subject != "chat.user.bob" {
		t.Errorf("unexpected notification subject %q", notifs[0].subject)
	}

	var ev protocol.NotificationMsg
	if err := json.Unmarshal(notifs[0].data, &ev); err != nil {
		t.Fatalf("failed to decode notification: %v", err)
	}
	if ev.Type != protocol.TypeNotification || ev.SenderID != "alice" {
		t.Errorf("unexpected notification payload: %+v", ev)
	}
}

func TestSendSkipsNotificationWhenOffline(t *testing.T) {
	svc, store, bus := newTestService() // nobody online

	if _, err := svc.Send(context.Background(), "alice", "bob", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The message still persists and still fans out to the room.
	if len(store.appended) != 1 {
		t.Fatalf("expected message persisted, got %d", len(store.appended))
	}
	if len(bus.bySubjectPrefix("chat.room.")) != 1 {
		t.Fatal("expected room fan-out despite offline receiver")
	}
	if n := bus.bySubjectPrefix("chat.user."); len(n) != 0 {
		t.Fatalf("expected no notification for offline receiver, got %d", len(n))
	}
}

func TestSendUnknownReceiver(t *testing.T) {
	svc, store, bus := newTestService()

	_, err := svc.Send(context.Background(), "alice", "stranger", "hi")
	if !errors.Is(err, ErrReceiverNotFound) {
		t.Fatalf("expected ErrReceiverNotFound, got %v", err)
	}
	if len(store.appended) != 0 {
		t.Fatal("nothing should persist for an unknown receiver")
	}
	if len(bus.events) != 0 {
		t.Fatal("nothing should publish for an unknown receiver")
	}
}

func TestSendRoomSubjectSymmetric(t *testing.T) {
	svc1, _, bus1 := newTestService()
	svc2, _, bus2 := newTestService()

	if _, err := svc1.Send(context.Background(), "alice", "bob", "one way"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc2.Send(context.Background(), "bob", "alice", "other way"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s1 := bus1.bySubjectPrefix("chat.room.")[0].subject
	s2 := bus2.bySubjectPrefix("chat.room.")[0].subject
	if s1 != s2 {
		t.Fatalf("room subjects differ by direction: %q vs %q", s1, s2)
	}
}

func TestSendPersistenceFailure(t *testing.T) {
	store := &fakeStore{fail: errors.New("db down")}
	bus := &fakeBus{}
	dir := &fakeDirectory{known: map[string]bool{"alice": true, "bob": true}}
	svc := NewService(store, dir, bus, &fakePresence{online: map[string]bool{"bob": true}})

	_, err := svc.Send(context.Background(), "alice", "bob", "hi")
	if err == nil {
		t.Fatal("expected error when persistence fails")
	}
	if len(bus.events) != 0 {
		t.Fatal("nothing should publish when persistence fails")
	}
}

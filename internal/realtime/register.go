package realtime

import (
	"github.com/careerlink/messaging/internal/protocol"
	"github.com/careerlink/messaging/internal/ws"
)

// RegisterHandlers wires the hub's event handlers into the WebSocket
// dispatcher and installs the disconnect hook on the server.
func (h *Hub) RegisterHandlers(d *ws.MessageDispatcher, server *ws.Server) {
	d.Register(protocol.TypeUserOnline, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.UserOnlineMsg); ok {
			h.HandleUserOnline(conn.ID, m)
		}
	})
	d.Register(protocol.TypeJoinChat, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.JoinChatMsg); ok {
			h.HandleJoinChat(conn.ID, m)
		}
	})
	d.Register(protocol.TypeSendMessage, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.SendMessageMsg); ok {
			h.HandleSendMessage(conn.ID, m)
		}
	})
	d.Register(protocol.TypeTyping, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.TypingMsg); ok {
			h.HandleTyping(conn.ID, m)
		}
	})
	d.Register(protocol.TypeStopTyping, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.StopTypingMsg); ok {
			h.HandleStopTyping(conn.ID, m)
		}
	})
	d.Register(protocol.TypeMarkRead, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.MarkReadMsg); ok {
			h.HandleMarkRead(conn.ID, m)
		}
	})

	server.SetOnDisconnect(h.HandleDisconnect)
}

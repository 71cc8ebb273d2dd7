// chatcli is a terminal chat client for the messaging service. It connects
// over WebSocket, announces the given user, and turns stdin lines into chat
// messages. Commands: /select <userID> switches the conversation, /inbox
// prints the conversation overview, /quit exits.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/careerlink/messaging/client"
)

func main() {
	userID := flag.String("user", "", "user ID to chat as (required)")
	wsURL := flag.String("ws", "ws://localhost:8081/ws", "WebSocket endpoint")
	apiURL := flag.String("api", "http://localhost:8080", "REST API base URL")
	flag.Parse()

	if *userID == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	sock, err := client.Dial(ctx, *wsURL)
	cancel()
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer sock.Close()

	api := client.NewAPI(*apiURL, *userID)

	var ctrl *client.Controller
	printed := 0
	ctrl = client.NewController(*userID, sock, api, client.Callbacks{
		ThreadChanged: func() {
			entries := ctrl.Thread()
			if len(entries) < printed {
				printed = 0
			}
			for _, m := range entries[printed:] {
				printEntry(*userID, m)
			}
			printed = len(entries)
		},
		PeerTyping: func(typing bool) {
			if typing {
				fmt.Println("* peer is typing...")
			}
		},
		PeerStatus: func(peerID, status string) {
			fmt.Printf("* %s is now %s\n", peerID, status)
		},
		MessagesRead: func(readBy string) {
			fmt.Printf("* %s read your messages\n", readBy)
		},
		Notified: func(senderID, body string) {
			fmt.Printf("* new message from %s: %s\n", senderID, body)
		},
	}, 0)

	ctrl.Bind(sock)
	if err := ctrl.Announce(); err != nil {
		log.Fatalf("announce: %v", err)
	}

	fmt.Printf("connected as %s. /select <userID> to open a conversation.\n", *userID)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue

		case line == "/quit":
			return

		case line == "/inbox":
			printInbox(api)

		case strings.HasPrefix(line, "/select "):
			peer := strings.TrimSpace(strings.TrimPrefix(line, "/select "))
			printed = 0
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := ctrl.SelectPeer(ctx, peer)
			cancel()
			if err != nil {
				fmt.Printf("! %v\n", err)
				continue
			}
			fmt.Printf("-- conversation with %s --\n", peer)

		default:
			if err := ctrl.Send(line); err != nil {
				fmt.Printf("! %v\n", err)
			}
		}
	}
}

func printInbox(api *client.API) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	convs, err := api.FetchConversations(ctx)
	if err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	if len(convs) == 0 {
		fmt.Println("(no conversations)")
		return
	}
	for _, c := range convs {
		name := c.User.Name
		if name == "" {
			name = c.User.ID
		}
		marker := ""
		if c.UnreadCount > 0 {
			marker = fmt.Sprintf(" [%d unread]", c.UnreadCount)
		}
		fmt.Printf("%s%s: %s (%s)\n", name, marker, c.LastMessage,
			c.LastMessageTime.Local().Format("Jan 2 15:04"))
	}
}

func printEntry(userID string, m client.ThreadEntry) {
	who := m.SenderID
	if m.SenderID == userID {
		who = "me"
	}
	fmt.Printf("[%s] %s: %s\n", m.Timestamp.Local().Format("15:04"), who, m.Body)
}

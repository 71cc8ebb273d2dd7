// Package inbox derives the per-user conversation overview from the raw
// message history. Nothing here is persisted; the rollup is recomputed on
// every read, which is cheap at direct-message scale.
package inbox

import (
	"time"

	"github.com/careerlink/messaging/internal/message"
)

// Summary is one inbox row: the counterpart, the most recent message
// exchanged with them, and how many of their messages are still unread.
type Summary struct {
	UserID          string    `json:"userId"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
	UnreadCount     int       `json:"unreadCount"`
}

// Build folds a message list into one Summary per counterpart.
//
// msgs must be ordered descending by creation time (message.Store.AllForUser
// returns exactly that). The first message seen for a counterpart is therefore
// the most recent one and fixes the LastMessage fields; every unread message
// addressed to userID accumulates into that counterpart's UnreadCount.
// Output order is first-seen order, i.e. most recent conversation first.
func Build(userID string, msgs []message.Message) []Summary {
	index := make(map[string]int)
	summaries := []Summary{}

	for _, m := range msgs {
		other := m.SenderID
		if other == userID {
			other = m.ReceiverID
		}

		i, seen := index[other]
		if !seen {
			i = len(summaries)
			index[other] = i
			summaries = append(summaries, Summary{
				UserID:          other,
				LastMessage:     m.Body,
				LastMessageTime: m.CreatedAt,
			})
		}

		if m.ReceiverID == userID && !m.Read {
			summaries[i].UnreadCount++
		}
	}

	return summaries
}

package messaging

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Message is one donor-to-donor message. Messages are append-only; only
// ReadAt is ever updated, when the recipient opens the conversation.
type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
	ReadAt      null.Time `json:"read_at"`
}

// ConversationSummary is one inbox row: the peer, the latest message either
// way, and how many of the peer's messages are still unread.
type ConversationSummary struct {
	PeerID      string  `json:"peer_id"`
	PeerName    string  `json:"peer_name"`
	LastMessage Message `json:"last_message"`
	Unread      int     `json:"unread"`
}

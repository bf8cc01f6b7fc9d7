package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lifeline/core/messaging"
)

type messageRepository struct {
	db *DB
}

var _ messaging.Repository = (*messageRepository)(nil)

func NewMessageRepository(db *DB) *messageRepository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) query() []messaging.Message {
	msgs := make([]messaging.Message, 0, len(repo.db.messages))
	for _, m := range repo.db.messages {
		msgs = append(msgs, *m)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs
}

func (repo *messageRepository) CreateMessage(ctx context.Context, msg messaging.Message) (messaging.Message, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	msg.ID = uuid.New().String()
	repo.db.messages[msg.ID] = &msg
	return msg, nil
}

func (repo *messageRepository) QueryThread(ctx context.Context, userID, peerID string) ([]messaging.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	msgs := make([]messaging.Message, 0)
	for _, m := range repo.query() {
		if (m.SenderID == userID && m.RecipientID == peerID) ||
			(m.SenderID == peerID && m.RecipientID == userID) {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

func (repo *messageRepository) MarkThreadRead(ctx context.Context, recipientID, senderID string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, m := range repo.db.messages {
		if m.RecipientID == recipientID && m.SenderID == senderID && !m.ReadAt.Valid {
			m.ReadAt = null.TimeFrom(at)
		}
	}
	return nil
}

func (repo *messageRepository) QueryInbox(ctx context.Context, userID string) ([]messaging.ConversationSummary, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	byPeer := make(map[string]*messaging.ConversationSummary)
	for _, m := range repo.query() {
		var peerID string
		switch userID {
		case m.SenderID:
			peerID = m.RecipientID
		case m.RecipientID:
			peerID = m.SenderID
		default:
			continue
		}

		sum, ok := byPeer[peerID]
		if !ok {
			sum = &messaging.ConversationSummary{PeerID: peerID}
			if usr, exists := repo.db.users[peerID]; exists {
				sum.PeerName = usr.Name
			}
			byPeer[peerID] = sum
		}
		sum.LastMessage = m
		if m.RecipientID == userID && !m.ReadAt.Valid {
			sum.Unread++
		}
	}

	summaries := make([]messaging.ConversationSummary, 0, len(byPeer))
	for _, sum := range byPeer {
		summaries = append(summaries, *sum)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastMessage.CreatedAt.After(summaries[j].LastMessage.CreatedAt)
	})
	return summaries, nil
}

package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lifeline/core/messaging"
)

type messageRow struct {
	ID          string    `db:"id"`
	SenderID    string    `db:"sender_id"`
	RecipientID string    `db:"recipient_id"`
	Body        string    `db:"body"`
	SentAt      time.Time `db:"sent_at"`
	ReadAt      null.Time `db:"read_at"`
}

func (r messageRow) message() messaging.Message {
	return messaging.Message{
		ID:          r.ID,
		SenderID:    r.SenderID,
		RecipientID: r.RecipientID,
		Body:        r.Body,
		CreatedAt:   r.SentAt,
		ReadAt:      r.ReadAt,
	}
}

type messageRepository struct {
	db *sqlx.DB
}

var _ messaging.Repository = (*messageRepository)(nil)

func NewMessageRepository(db *sqlx.DB) *messageRepository {
	return &messageRepository{db: db}
}

func (repo messageRepository) CreateMessage(ctx context.Context, msg messaging.Message) (messaging.Message, error) {
	msg.ID = uuid.New().String()
	row := messageRow{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Body:        msg.Body,
		SentAt:      msg.CreatedAt,
		ReadAt:      msg.ReadAt,
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO messages (id, sender_id, recipient_id, body, sent_at, read_at)
		VALUES (:id, :sender_id, :recipient_id, :body, :sent_at, :read_at)`,
		row,
	)
	if err != nil {
		return messaging.Message{}, errors.Wrap(err, "creating message")
	}
	return row.message(), nil
}

func (repo messageRepository) QueryThread(ctx context.Context, userID, peerID string) ([]messaging.Message, error) {
	var rows []messageRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM messages
		WHERE (sender_id = $1 AND recipient_id = $2)
		   OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY sent_at`,
		userID, peerID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying thread")
	}
	msgs := make([]messaging.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, r.message())
	}
	return msgs, nil
}

func (repo messageRepository) MarkThreadRead(ctx context.Context, recipientID, senderID string, at time.Time) error {
	_, err := repo.db.ExecContext(ctx, `
		UPDATE messages SET read_at = $1
		WHERE recipient_id = $2 AND sender_id = $3 AND read_at IS NULL`,
		at, recipientID, senderID,
	)
	if err != nil {
		return errors.Wrap(err, "marking thread read")
	}
	return nil
}

func (repo messageRepository) QueryInbox(ctx context.Context, userID string) ([]messaging.ConversationSummary, error) {
	type inboxRow struct {
		PeerID   string         `db:"peer_id"`
		PeerName sql.NullString `db:"peer_name"`
		Unread   int            `db:"unread"`
		messageRow
	}

	var rows []inboxRow
	err := repo.db.SelectContext(ctx, &rows, `
		WITH convo AS (
			SELECT m.*, CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END AS peer_id
			FROM messages m
			WHERE m.sender_id = $1 OR m.recipient_id = $1
		), last_msg AS (
			SELECT DISTINCT ON (peer_id) * FROM convo ORDER BY peer_id, sent_at DESC
		), unread AS (
			SELECT sender_id AS peer_id, COUNT(*) AS unread
			FROM messages
			WHERE recipient_id = $1 AND read_at IS NULL
			GROUP BY sender_id
		)
		SELECT l.peer_id, u.name AS peer_name, COALESCE(un.unread, 0) AS unread,
		       l.id, l.sender_id, l.recipient_id, l.body, l.sent_at, l.read_at
		FROM last_msg l
		LEFT JOIN unread un ON un.peer_id = l.peer_id
		LEFT JOIN users u ON u.id = l.peer_id
		ORDER BY l.sent_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying inbox")
	}

	summaries := make([]messaging.ConversationSummary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, messaging.ConversationSummary{
			PeerID:      r.PeerID,
			PeerName:    r.PeerName.String,
			LastMessage: r.message(),
			Unread:      r.Unread,
		})
	}
	return summaries, nil
}

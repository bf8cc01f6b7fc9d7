package messaging

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/lifeline/core"
	"github.com/trezcool/lifeline/core/user"
)

// EventMessage is published to the recipient's realtime subscription when a
// new message lands in their inbox.
const EventMessage = "message"

var (
	// errors
	ErrNotFound    = errors.New("message not found")
	ErrEmptyBody   = errors.New("message body is empty")
	ErrSelfMessage = errors.New("cannot message yourself")
	ErrUnknownPeer = errors.New("unknown recipient")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		QueryThread(ctx context.Context, userID, peerID string) ([]Message, error)
		MarkThreadRead(ctx context.Context, recipientID, senderID string, at time.Time) error
		QueryInbox(ctx context.Context, userID string) ([]ConversationSummary, error)
	}

	// Participants resolves message peers; satisfied by the user service.
	Participants interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service interface {
		Send(ctx context.Context, senderID, recipientID, body string) (Message, error)
		Inbox(ctx context.Context, userID string) ([]ConversationSummary, error)
		// Thread returns the full conversation between userID and peerID,
		// oldest first, and marks the peer's messages as read.
		Thread(ctx context.Context, userID, peerID string) ([]Message, error)
	}

	service struct {
		repo      Repository
		users     Participants
		broadcast core.Broadcaster
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users Participants, broadcast core.Broadcaster) Service {
	return &service{
		repo:      repo,
		users:     users,
		broadcast: broadcast,
	}
}

func (svc *service) Send(ctx context.Context, senderID, recipientID, body string) (Message, error) {
	if body = core.CleanString(body); body == "" {
		return Message{}, ErrEmptyBody
	}
	if senderID == recipientID {
		return Message{}, ErrSelfMessage
	}
	if _, err := svc.users.GetByID(ctx, recipientID); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Message{}, ErrUnknownPeer
		}
		return Message{}, errors.Wrap(err, "resolving recipient")
	}

	msg := Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
		CreatedAt:   NowFunc().UTC(),
	}
	msg, err := svc.repo.CreateMessage(ctx, msg)
	if err != nil {
		return Message{}, errors.Wrap(err, "creating message")
	}

	svc.broadcast.Send(recipientID, core.Event{Name: EventMessage, Payload: msg})
	return msg, nil
}

func (svc *service) Inbox(ctx context.Context, userID string) ([]ConversationSummary, error) {
	summaries, err := svc.repo.QueryInbox(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying inbox")
	}
	return summaries, nil
}

func (svc *service) Thread(ctx context.Context, userID, peerID string) ([]Message, error) {
	msgs, err := svc.repo.QueryThread(ctx, userID, peerID)
	if err != nil {
		return nil, errors.Wrap(err, "querying thread")
	}
	// opening the thread consumes the unread state
	if err = svc.repo.MarkThreadRead(ctx, userID, peerID, NowFunc().UTC()); err != nil {
		return nil, errors.Wrap(err, "marking thread read")
	}
	return msgs, nil
}

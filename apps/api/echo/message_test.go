package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/lifeline/core/messaging"
	"github.com/trezcool/lifeline/core/user"
)

func TestMessaging(t *testing.T) {
	app := setup(t)
	jane := app.createUser(t, "Jane Doe", "janedoe", "jane@test.cd", user.DonorRoles)
	john := app.createUser(t, "John Doe", "johndoe", "john@test.cd", user.DonorRoles)
	janeToken := getToken(t, jane)
	johnToken := getToken(t, john)

	send := func(t *testing.T, token, recipientID, body string) messaging.Message {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, "/v1/messages", token,
			SendMessageRequest{RecipientID: recipientID, Body: body})
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var msg messaging.Message
		decodeBody(t, rec, &msg)
		return msg
	}

	t.Run("send", func(t *testing.T) {
		msg := send(t, janeToken, john.ID, "  Hey John!  ")
		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, jane.ID, msg.SenderID)
		assert.Equal(t, john.ID, msg.RecipientID)
		assert.Equal(t, "Hey John!", msg.Body)
		assert.False(t, msg.ReadAt.Valid)
	})

	t.Run("empty body", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/messages", janeToken,
			SendMessageRequest{RecipientID: john.ID, Body: "   "})
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("self message", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/messages", janeToken,
			SendMessageRequest{RecipientID: jane.ID, Body: "note to self"})
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown recipient", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/messages", janeToken,
			SendMessageRequest{RecipientID: "ghost", Body: "anyone there?"})
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "recipient_id")
	})

	t.Run("inbox", func(t *testing.T) {
		send(t, janeToken, john.ID, "Still there?")

		req, rec := newAuthRequest(http.MethodGet, "/v1/messages", johnToken)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var summaries []messaging.ConversationSummary
		decodeBody(t, rec, &summaries)
		if assert.Len(t, summaries, 1) {
			assert.Equal(t, jane.ID, summaries[0].PeerID)
			assert.Equal(t, "Jane Doe", summaries[0].PeerName)
			assert.Equal(t, "Still there?", summaries[0].LastMessage.Body)
			assert.Equal(t, 2, summaries[0].Unread)
		}
	})

	t.Run("thread marks read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/messages/"+jane.ID, johnToken)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var msgs []messaging.Message
		decodeBody(t, rec, &msgs)
		assert.Len(t, msgs, 2)

		// unread count drops to zero once the thread was opened
		req, rec = newAuthRequest(http.MethodGet, "/v1/messages", johnToken)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var summaries []messaging.ConversationSummary
		decodeBody(t, rec, &summaries)
		if assert.Len(t, summaries, 1) {
			assert.Equal(t, 0, summaries[0].Unread)
		}
	})

	t.Run("empty inbox", func(t *testing.T) {
		loner := app.createUser(t, "Loner", "loner1", "loner@test.cd", user.DonorRoles)

		req, rec := newAuthRequest(http.MethodGet, "/v1/messages", getToken(t, loner))
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("realtime event reaches the recipient", func(t *testing.T) {
		events, cancel := app.hub.Subscribe(john.ID)
		defer cancel()

		send(t, janeToken, john.ID, "ping")

		select {
		case evt := <-events:
			assert.Equal(t, messaging.EventMessage, evt.Name)
			msg, ok := evt.Payload.(messaging.Message)
			if assert.True(t, ok) {
				assert.Equal(t, "ping", msg.Body)
			}
		default:
			t.Fatal("expected a realtime event for the recipient")
		}
	})
}

package emailsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/lifeline/core"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                        {}
func (nopLogger) Debug(string, ...interface{})       {}
func (nopLogger) Info(string, ...interface{})        {}
func (nopLogger) Warn(string, ...interface{})        {}
func (nopLogger) Error(string, ...interface{})       {}
func (nopLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

func newTestSendgridService(t *testing.T) *sendgridService {
	t.Helper()
	core.Conf.SendgridApiKey = "SG.test"
	core.Conf.MailSendTimeout = 2 * time.Second
	core.Conf.DefaultFromEmail = mail.Address{Name: "Lifeline", Address: "noreply@test.cd"}
	return NewSendgridService(nopLogger{})
}

func TestSendgridPrepare(t *testing.T) {
	svc := newTestSendgridService(t)

	t.Run("plain text only", func(t *testing.T) {
		m := svc.prepare(core.EmailMessage{
			To:          []mail.Address{{Address: "jane@test.cd"}},
			Subject:     "hello",
			TextContent: "plain body",
		})
		if assert.Len(t, m.Content, 1) {
			assert.Equal(t, "text/plain", m.Content[0].Type)
			assert.Equal(t, "plain body", m.Content[0].Value)
		}
	})

	t.Run("text and html", func(t *testing.T) {
		m := svc.prepare(core.EmailMessage{
			To:          []mail.Address{{Address: "jane@test.cd"}},
			Subject:     "hello",
			TextContent: "plain body",
			HTMLContent: "<p>rich body</p>",
		})
		assert.Len(t, m.Content, 2)
	})
}

func TestSendgridSend(t *testing.T) {
	svc := newTestSendgridService(t)

	var gotAuth string
	var gotBody map[string]interface{}
	status := http.StatusAccepted
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	origHost := host
	host = srv.URL
	defer func() { host = origHost }()

	msg := &core.EmailMessage{
		To:      []mail.Address{{Address: "jane@test.cd"}},
		Subject: "urgent",
		BodyStr: "O- needed near 500001",
	}

	t.Run("ok", func(t *testing.T) {
		assert.NoError(t, svc.SendMessage(context.Background(), msg))
		assert.Equal(t, "Bearer SG.test", gotAuth)
		assert.NotEmpty(t, gotBody["personalizations"])
	})

	t.Run("rejected by provider", func(t *testing.T) {
		status = http.StatusBadRequest
		assert.Error(t, svc.SendMessage(context.Background(), msg))
	})
}

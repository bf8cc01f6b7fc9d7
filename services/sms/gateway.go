package smssvc

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/lifeline/core"
	"github.com/trezcool/lifeline/core/alert"
)

// GatewayError wraps an SMS gateway failure. Server-side and network
// failures are transient; client-side rejections (bad number, auth) are not.
type GatewayError struct {
	StatusCode int // 0 on network failure
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("sms gateway: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sms gateway: %v", e.Err)
}

func (e *GatewayError) Cause() error { return e.Err }

func (e *GatewayError) Transient() bool {
	return e.StatusCode == 0 || e.StatusCode >= http.StatusInternalServerError
}

// gateway sends messages through a Twilio-compatible REST API,
// one call per message.
type gateway struct {
	conf   core.SMSConfig
	client *rest.Client
}

var _ alert.SmsSender = (*gateway)(nil)

func NewGateway(conf core.SMSConfig) *gateway {
	return &gateway{
		conf:   conf,
		client: &rest.Client{HTTPClient: &http.Client{Timeout: conf.SendTimeout}},
	}
}

func (g *gateway) Send(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", g.conf.FromNumber)
	form.Set("Body", body)

	req := rest.Request{
		Method:  http.MethodPost,
		BaseURL: fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", g.conf.BaseURL, g.conf.AccountID),
		Headers: map[string]string{
			"Authorization": "Basic " + g.basicAuth(),
			"Content-Type":  "application/x-www-form-urlencoded",
		},
		Body: []byte(form.Encode()),
	}

	ctx, cancel := context.WithTimeout(ctx, g.conf.SendTimeout)
	defer cancel()

	res, err := g.client.SendWithContext(ctx, req)
	if err != nil {
		return &GatewayError{Err: err}
	}
	if res.StatusCode >= http.StatusBadRequest {
		return &GatewayError{
			StatusCode: res.StatusCode,
			Err:        errors.Errorf("response: %s", res.Body),
		}
	}
	return nil
}

func (g *gateway) basicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(g.conf.AccountID + ":" + g.conf.AuthToken))
}

package alert

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"

	"github.com/trezcool/lifeline/core"
)

// DeliveryError is the generic per-recipient, per-channel failure. Transient
// marks failures that a future retry policy could re-attempt; the current
// dispatcher treats every failure as terminal for the attempt either way.
type DeliveryError struct {
	Transient bool
	Err       error
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return "delivery failed"
	}
	return e.Err.Error()
}

func (e *DeliveryError) Cause() error { return e.Err }

type (
	// Channel is an independent notification transport. Send constructs a
	// channel-appropriate message for target and delivers it within the
	// transport's configured timeout.
	Channel interface {
		Name() string
		Send(ctx context.Context, target string, c Criteria) *DeliveryError
	}

	// BatchChannel is a Channel whose transport is acquired once per
	// dispatch and released on every exit path.
	BatchChannel interface {
		Channel
		Open(ctx context.Context) error
		Close() error
	}

	// SmsSender is the outbound SMS gateway collaborator. Returned errors
	// may implement `interface{ Transient() bool }` to mark retryability.
	SmsSender interface {
		Send(ctx context.Context, to, body string) error
	}
)

// emailChannel delivers alerts through the application's email service.
// The service holds a single pooled transport; Open/Close scope its use
// to the dispatch.
type emailChannel struct {
	svc core.EmailService
}

var _ BatchChannel = (*emailChannel)(nil)

func NewEmailChannel(svc core.EmailService) BatchChannel {
	return &emailChannel{svc: svc}
}

func (ch *emailChannel) Name() string { return "email" }

func (ch *emailChannel) Open(ctx context.Context) error { return nil }

func (ch *emailChannel) Close() error { return nil }

func (ch *emailChannel) Send(ctx context.Context, target string, c Criteria) *DeliveryError {
	msg := &core.EmailMessage{
		To:      []mail.Address{{Address: target}},
		Subject: fmt.Sprintf("URGENT: %s blood needed near %s", c.BloodType, c.Pincode),
		BodyStr: emailBody(target, c),
	}
	if err := ch.svc.SendMessage(ctx, msg); err != nil {
		// the mail relay is remote; assume the failure is retryable
		return &DeliveryError{Transient: true, Err: err}
	}
	return nil
}

func emailBody(target string, c Criteria) string {
	respondURL := core.FrontendURL("/alerts/respond", url.Values{
		"email":      {target},
		"blood_type": {c.BloodType},
	})
	return fmt.Sprintf(
		"An emergency request for %s blood has been raised in your area (postal code %s).\n\n"+
			"If you can donate, please call %s immediately,\n"+
			"and let us know you are available: %s\n\n"+
			"Every minute counts. Thank you.",
		c.BloodType, c.Pincode, c.ContactPhone, respondURL,
	)
}

// smsChannel delivers alerts through the SMS gateway, one call per message.
type smsChannel struct {
	sender SmsSender
}

var _ Channel = (*smsChannel)(nil)

func NewSmsChannel(sender SmsSender) Channel {
	return &smsChannel{sender: sender}
}

func (ch *smsChannel) Name() string { return "sms" }

func (ch *smsChannel) Send(ctx context.Context, target string, c Criteria) *DeliveryError {
	body := fmt.Sprintf(
		"URGENT: %s blood needed near %s. Can you donate? Call %s.",
		c.BloodType, c.Pincode, c.ContactPhone,
	)
	if err := ch.sender.Send(ctx, target, body); err != nil {
		derr := &DeliveryError{Err: err}
		if t, ok := err.(interface{ Transient() bool }); ok {
			derr.Transient = t.Transient()
		}
		return derr
	}
	return nil
}

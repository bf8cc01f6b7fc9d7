package alert

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/lifeline/core"
	"github.com/trezcool/lifeline/core/donor"
)

// ErrNoRecipients signals that no donor anywhere could be notified.
// It is a user-visible outcome, not a server fault.
var ErrNoRecipients = errors.New("no registered donors could be notified")

// EventEmergencyAlert is published to connected clients on every dispatch.
const EventEmergencyAlert = "emergency_alert"

type (
	// Directory resolves donor contacts for a dispatch.
	Directory interface {
		MatchDonors(ctx context.Context, bloodType, pincode string) ([]donor.Contact, error)
		AllDonorsWithContact(ctx context.Context) ([]donor.Contact, error)
	}

	// AuditLog is the append-only record of triggered alerts. Writes are
	// best-effort: failures are logged, never surfaced to the caller.
	AuditLog interface {
		CreateAudit(ctx context.Context, a Audit) (Audit, error)
	}

	Dispatcher interface {
		Dispatch(ctx context.Context, c Criteria) (Result, error)
	}

	dispatcher struct {
		directory Directory
		email     BatchChannel
		sms       Channel // nil when the gateway is not configured
		audit     AuditLog
		broadcast core.Broadcaster
		logger    core.Logger
	}
)

var _ Dispatcher = (*dispatcher)(nil)

func NewDispatcher(
	directory Directory,
	email BatchChannel,
	sms Channel,
	audit AuditLog,
	broadcast core.Broadcaster,
	logger core.Logger,
) Dispatcher {
	return &dispatcher{
		directory: directory,
		email:     email,
		sms:       sms,
		audit:     audit,
		broadcast: broadcast,
		logger:    logger,
	}
}

// Dispatch runs one emergency broadcast: match donors (falling back to all
// donors when the exact match is empty), attempt email and SMS per recipient,
// and aggregate per-channel outcomes. Individual transport failures never
// abort the loop nor escape as errors; only invalid criteria and a fully
// empty directory are hard failures.
func (d *dispatcher) Dispatch(ctx context.Context, c Criteria) (Result, error) {
	if err := c.Validate(); err != nil {
		return Result{}, err
	}

	contacts, err := d.directory.MatchDonors(ctx, c.BloodType, c.Pincode)
	if err != nil {
		return Result{}, errors.Wrap(err, "matching donors")
	}

	var usedFallback bool
	if len(contacts) == 0 {
		usedFallback = true
		if contacts, err = d.directory.AllDonorsWithContact(ctx); err != nil {
			return Result{}, errors.Wrap(err, "querying fallback donors")
		}
		if len(contacts) == 0 {
			return Result{UsedFallback: true}, ErrNoRecipients
		}
	}

	res := Result{
		MatchedRecipients: newRecipients(contacts),
		Matched:           len(contacts),
		UsedFallback:      usedFallback,
	}

	// acquire the email transport once for the whole recipient loop;
	// released on every exit path
	emailReady := true
	if err = d.email.Open(ctx); err != nil {
		emailReady = false
		d.logger.Error("opening email transport", err)
	} else {
		defer func() {
			if cerr := d.email.Close(); cerr != nil {
				d.logger.Warn("closing email transport", cerr)
			}
		}()
	}

	for _, r := range res.MatchedRecipients {
		if emailReady {
			if derr := d.email.Send(ctx, r.Email, c); derr != nil {
				res.EmailFailed++
				d.logger.Warn("alert email failed", map[string]interface{}{
					"recipient": r.Email, "transient": derr.Transient, "error": derr.Error(),
				})
			} else {
				res.EmailSent++
			}
		} else {
			res.EmailFailed++
		}

		// SMS only when the donor has a phone and the channel is configured;
		// a skip is not a failure
		if r.Phone == "" || d.sms == nil {
			continue
		}
		if derr := d.sms.Send(ctx, r.Phone, c); derr != nil {
			res.SmsFailed++
			d.logger.Warn("alert sms failed", map[string]interface{}{
				"recipient": r.Phone, "transient": derr.Transient, "error": derr.Error(),
			})
		} else {
			res.SmsSent++
		}
	}

	if _, err = d.audit.CreateAudit(ctx, newAudit(c, res)); err != nil {
		d.logger.Error("recording alert audit", errors.Wrap(err, "recording alert audit"))
	}

	d.broadcast.Broadcast(core.Event{
		Name: EventEmergencyAlert,
		Payload: map[string]string{
			"bloodType": c.BloodType,
			"region":    c.Pincode,
		},
	})

	return res, nil
}

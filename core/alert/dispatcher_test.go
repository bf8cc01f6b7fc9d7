package alert

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/lifeline/core"
	"github.com/trezcool/lifeline/core/donor"
)

type fakeDirectory struct {
	matched  []donor.Contact
	all      []donor.Contact
	matchErr error
	allErr   error

	matchCalls int
	allCalls   int
}

func (d *fakeDirectory) MatchDonors(ctx context.Context, bloodType, pincode string) ([]donor.Contact, error) {
	d.matchCalls++
	return d.matched, d.matchErr
}

func (d *fakeDirectory) AllDonorsWithContact(ctx context.Context) ([]donor.Contact, error) {
	d.allCalls++
	return d.all, d.allErr
}

type fakeChannel struct {
	name        string
	failTargets map[string]bool
	openErr     error

	sent   []string
	opens  int
	closes int
}

func (ch *fakeChannel) Name() string { return ch.name }

func (ch *fakeChannel) Open(ctx context.Context) error {
	ch.opens++
	return ch.openErr
}

func (ch *fakeChannel) Close() error {
	ch.closes++
	return nil
}

func (ch *fakeChannel) Send(ctx context.Context, target string, c Criteria) *DeliveryError {
	if ch.failTargets[target] {
		return &DeliveryError{Transient: true, Err: errors.New("transport unreachable")}
	}
	ch.sent = append(ch.sent, target)
	return nil
}

type fakeAudit struct {
	records []Audit
	err     error
}

func (a *fakeAudit) CreateAudit(ctx context.Context, rec Audit) (Audit, error) {
	if a.err != nil {
		return Audit{}, a.err
	}
	a.records = append(a.records, rec)
	return rec, nil
}

type fakeBroadcaster struct {
	events []core.Event
}

func (b *fakeBroadcaster) Broadcast(evt core.Event)           { b.events = append(b.events, evt) }
func (b *fakeBroadcaster) Send(userID string, evt core.Event) {}
func (b *fakeBroadcaster) Subscribe(userID string) (<-chan core.Event, func()) {
	return nil, func() {}
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                        {}
func (nopLogger) Debug(string, ...interface{})       {}
func (nopLogger) Info(string, ...interface{})        {}
func (nopLogger) Warn(string, ...interface{})        {}
func (nopLogger) Error(string, ...interface{})       {}
func (nopLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

func validCriteria() Criteria {
	return Criteria{BloodType: "O-", Pincode: "500001", ContactPhone: "9999999999"}
}

func newTestDispatcher(dir *fakeDirectory, email *fakeChannel, sms Channel, audit *fakeAudit, bcast *fakeBroadcaster) Dispatcher {
	return NewDispatcher(dir, email, sms, audit, bcast, nopLogger{})
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("exact match, both channels succeed", func(t *testing.T) {
		dir := &fakeDirectory{matched: []donor.Contact{
			{DonorID: "d1", Email: "d1@x.com", Phone: "111"},
			{DonorID: "d2", Email: "d2@x.com"},
		}}
		email := &fakeChannel{name: "email"}
		sms := &fakeChannel{name: "sms"}
		audit := &fakeAudit{}
		bcast := &fakeBroadcaster{}

		res, err := newTestDispatcher(dir, email, sms, audit, bcast).Dispatch(ctx, validCriteria())

		assert.NoError(t, err)
		assert.False(t, res.UsedFallback)
		assert.Equal(t, 2, res.Matched)
		assert.Equal(t, 2, res.EmailSent)
		assert.Equal(t, 0, res.EmailFailed)
		assert.Equal(t, 1, res.SmsSent)
		assert.Equal(t, 0, res.SmsFailed)
		assert.Equal(t, 0, dir.allCalls, "fallback query must not run on a non-empty exact match")
		assert.Equal(t, []string{"d1@x.com", "d2@x.com"}, email.sent)
		assert.Equal(t, []string{"111"}, sms.sent, "recipient without a phone never triggers SMS")
	})

	t.Run("invalid criteria is rejected before any side effect", func(t *testing.T) {
		dir := &fakeDirectory{}
		email := &fakeChannel{name: "email"}
		audit := &fakeAudit{}
		bcast := &fakeBroadcaster{}

		for _, c := range []Criteria{
			{Pincode: "500001", ContactPhone: "9999999999"},
			{BloodType: "O-", ContactPhone: "9999999999"},
			{BloodType: "O-", Pincode: "500001"},
			{BloodType: "X+", Pincode: "500001", ContactPhone: "9999999999"},
		} {
			_, err := newTestDispatcher(dir, email, nil, audit, bcast).Dispatch(ctx, c)
			assert.Error(t, err)
		}
		assert.Equal(t, 0, dir.matchCalls)
		assert.Empty(t, email.sent)
		assert.Empty(t, audit.records)
		assert.Empty(t, bcast.events)
	})

	t.Run("fallback to all donors on empty exact match", func(t *testing.T) {
		dir := &fakeDirectory{all: []donor.Contact{{DonorID: "d9", Email: "d9@x.com", Phone: "999"}}}
		email := &fakeChannel{name: "email"}
		sms := &fakeChannel{name: "sms"}
		audit := &fakeAudit{}

		res, err := newTestDispatcher(dir, email, sms, audit, &fakeBroadcaster{}).Dispatch(ctx, validCriteria())

		assert.NoError(t, err)
		assert.True(t, res.UsedFallback)
		assert.Equal(t, 1, res.Matched)
		assert.Equal(t, 1, res.EmailSent)
		assert.Equal(t, 1, res.SmsSent)
		assert.Equal(t, 1, dir.allCalls)
	})

	t.Run("no recipients anywhere", func(t *testing.T) {
		dir := &fakeDirectory{}
		email := &fakeChannel{name: "email"}
		sms := &fakeChannel{name: "sms"}

		res, err := newTestDispatcher(dir, email, sms, &fakeAudit{}, &fakeBroadcaster{}).Dispatch(ctx, validCriteria())

		assert.Equal(t, ErrNoRecipients, errors.Cause(err))
		assert.Equal(t, 0, res.EmailSent+res.EmailFailed+res.SmsSent+res.SmsFailed)
		assert.Empty(t, email.sent)
		assert.Empty(t, sms.sent)
	})

	t.Run("one failing email does not abort the batch", func(t *testing.T) {
		dir := &fakeDirectory{matched: []donor.Contact{
			{DonorID: "d1", Email: "d1@x.com"},
			{DonorID: "d2", Email: "d2@x.com"},
			{DonorID: "d3", Email: "d3@x.com"},
		}}
		email := &fakeChannel{name: "email", failTargets: map[string]bool{"d2@x.com": true}}

		res, err := newTestDispatcher(dir, email, nil, &fakeAudit{}, &fakeBroadcaster{}).Dispatch(ctx, validCriteria())

		assert.NoError(t, err)
		assert.Equal(t, 2, res.EmailSent)
		assert.Equal(t, 1, res.EmailFailed)
		assert.Equal(t, res.Matched, res.EmailSent+res.EmailFailed)
		assert.Equal(t, []string{"d1@x.com", "d3@x.com"}, email.sent)
	})

	t.Run("email failure does not block SMS for the same recipient", func(t *testing.T) {
		dir := &fakeDirectory{matched: []donor.Contact{{DonorID: "d1", Email: "d1@x.com", Phone: "111"}}}
		email := &fakeChannel{name: "email", failTargets: map[string]bool{"d1@x.com": true}}
		sms := &fakeChannel{name: "sms"}

		res, err := newTestDispatcher(dir, email, sms, &fakeAudit{}, &fakeBroadcaster{}).Dispatch(ctx, validCriteria())

		assert.NoError(t, err)
		assert.Equal(t, 1, res.EmailFailed)
		assert.Equal(t, 1, res.SmsSent)
	})

	t.Run("unconfigured SMS channel is a skip, not a failure", func(t *testing.T) {
		dir := &fakeDirectory{matched: []donor.Contact{{DonorID: "d1", Email: "d1@x.com", Phone: "111"}}}
		email := &fakeChannel{name: "email"}

		res, err := newTestDispatcher(dir, email, nil, &fakeAudit{}, &fakeBroadcaster{}).Dispatch(ctx, validCriteria())

		assert.NoError(t, err)
		assert.Equal(t, 0, res.SmsSent)
		assert.Equal(t, 0, res.SmsFailed)
	})

	t.Run("email transport failing to open counts all emails failed", func(t *testing.T) {
		dir := &fakeDirectory{matched: []donor.Contact{
			{DonorID: "d1", Email: "d1@x.com", Phone: "111"},
			{DonorID: "d2", Email: "d2@x.com", Phone: "222"},
		}}
		email := &fakeChannel{name: "email", openErr: errors.New("relay down")}
		sms := &fakeChannel{name: "sms"}

		res, err := newTestDispatcher(dir, email, sms, &fakeAudit{}, &fakeBroadcaster{}).Dispatch(ctx, validCriteria())

		assert.NoError(t, err, "an all-failed dispatch is still a completed result")
		assert.Equal(t, 0, res.EmailSent)
		assert.Equal(t, 2, res.EmailFailed)
		assert.Equal(t, 2, res.SmsSent, "SMS is independent of the email transport")
	})

	t.Run("transport is acquired once and released", func(t *testing.T) {
		dir := &fakeDirectory{matched: []donor.Contact{
			{DonorID: "d1", Email: "d1@x.com"},
			{DonorID: "d2", Email: "d2@x.com"},
			{DonorID: "d3", Email: "d3@x.com"},
		}}
		email := &fakeChannel{name: "email"}

		_, err := newTestDispatcher(dir, email, nil, &fakeAudit{}, &fakeBroadcaster{}).Dispatch(ctx, validCriteria())

		assert.NoError(t, err)
		assert.Equal(t, 1, email.opens)
		assert.Equal(t, 1, email.closes)
	})

	t.Run("audit record and realtime event", func(t *testing.T) {
		dir := &fakeDirectory{matched: []donor.Contact{{DonorID: "d1", Email: "d1@x.com"}}}
		audit := &fakeAudit{}
		bcast := &fakeBroadcaster{}

		res, err := newTestDispatcher(dir, &fakeChannel{name: "email"}, nil, audit, bcast).Dispatch(ctx, validCriteria())

		assert.NoError(t, err)
		if assert.Len(t, audit.records, 1) {
			rec := audit.records[0]
			assert.Equal(t, "O-", rec.BloodType)
			assert.Equal(t, "500001", rec.Pincode)
			assert.Equal(t, res.EmailSent, rec.EmailSent)
			assert.Equal(t, res.UsedFallback, rec.UsedFallback)
		}
		if assert.Len(t, bcast.events, 1) {
			assert.Equal(t, EventEmergencyAlert, bcast.events[0].Name)
			assert.Equal(t, map[string]string{"bloodType": "O-", "region": "500001"}, bcast.events[0].Payload)
		}
	})

	t.Run("audit failure is swallowed", func(t *testing.T) {
		dir := &fakeDirectory{matched: []donor.Contact{{DonorID: "d1", Email: "d1@x.com"}}}
		audit := &fakeAudit{err: errors.New("audit store down")}

		res, err := newTestDispatcher(dir, &fakeChannel{name: "email"}, nil, audit, &fakeBroadcaster{}).Dispatch(ctx, validCriteria())

		assert.NoError(t, err)
		assert.Equal(t, 1, res.EmailSent)
	})
}

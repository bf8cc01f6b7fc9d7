package alert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/lifeline/core/donor"
)

type fakeDonorResolver struct {
	donors map[string]donor.Donor // keyed by email

	lastResponse map[string]time.Time
}

func (r *fakeDonorResolver) GetByEmail(ctx context.Context, email string) (donor.Donor, error) {
	if d, ok := r.donors[email]; ok {
		return d, nil
	}
	return donor.Donor{}, donor.ErrNotFound
}

func (r *fakeDonorResolver) SetLastResponse(ctx context.Context, donorID string, at time.Time) error {
	if r.lastResponse == nil {
		r.lastResponse = make(map[string]time.Time)
	}
	r.lastResponse[donorID] = at
	return nil
}

type fakeResponseLog struct {
	responses []DonorResponse
}

func (l *fakeResponseLog) CreateDonorResponse(ctx context.Context, r DonorResponse) (DonorResponse, error) {
	l.responses = append(l.responses, r)
	return r, nil
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	origNow := NowFunc
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = origNow }()

	newFakes := func() (*fakeDonorResolver, *fakeResponseLog) {
		return &fakeDonorResolver{
			donors: map[string]donor.Donor{"jane@x.com": {ID: "d1"}},
		}, &fakeResponseLog{}
	}

	t.Run("missing params", func(t *testing.T) {
		resolver, log := newFakes()
		rec := NewRecorder(resolver, log)

		assert.Equal(t, ErrInvalidLink, rec.Record(ctx, "", "O-"))
		assert.Equal(t, ErrInvalidLink, rec.Record(ctx, "jane@x.com", ""))
		assert.Equal(t, ErrInvalidLink, rec.Record(ctx, "  ", "  "))
		assert.Empty(t, log.responses)
	})

	t.Run("unknown donor leaves no trace", func(t *testing.T) {
		resolver, log := newFakes()
		rec := NewRecorder(resolver, log)

		assert.Equal(t, ErrUnknownDonor, rec.Record(ctx, "ghost@x.com", "O-"))
		assert.Empty(t, log.responses)
		assert.Empty(t, resolver.lastResponse)
	})

	t.Run("known donor", func(t *testing.T) {
		resolver, log := newFakes()
		rec := NewRecorder(resolver, log)

		assert.NoError(t, rec.Record(ctx, " Jane@X.com ", "o-"))
		if assert.Len(t, log.responses, 1) {
			resp := log.responses[0]
			assert.Equal(t, "d1", resp.DonorID)
			assert.Equal(t, "O-", resp.BloodType, "blood type is normalized to upper case")
			assert.Equal(t, now, resp.RespondedAt)
		}
		assert.Equal(t, now, resolver.lastResponse["d1"])
	})

	t.Run("repeat responses are distinct records", func(t *testing.T) {
		resolver, log := newFakes()
		rec := NewRecorder(resolver, log)

		assert.NoError(t, rec.Record(ctx, "jane@x.com", "O-"))
		assert.NoError(t, rec.Record(ctx, "jane@x.com", "O-"))
		assert.Len(t, log.responses, 2)
	})
}

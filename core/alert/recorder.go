package alert

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/lifeline/core"
	"github.com/trezcool/lifeline/core/donor"
)

var (
	// errors
	ErrInvalidLink  = errors.New("invalid response link")
	ErrUnknownDonor = errors.New("unknown donor")

	NowFunc = time.Now // mockable
)

type (
	// DonorResolver resolves and marks donors for response recording.
	DonorResolver interface {
		GetByEmail(ctx context.Context, email string) (donor.Donor, error)
		SetLastResponse(ctx context.Context, donorID string, at time.Time) error
	}

	// ResponseLog appends donor responses. Append-only; no dedup.
	ResponseLog interface {
		CreateDonorResponse(ctx context.Context, r DonorResponse) (DonorResponse, error)
	}

	Recorder interface {
		Record(ctx context.Context, email, bloodType string) error
	}

	recorder struct {
		donors    DonorResolver
		responses ResponseLog
	}
)

var _ Recorder = (*recorder)(nil)

func NewRecorder(donors DonorResolver, responses ResponseLog) Recorder {
	return &recorder{donors: donors, responses: responses}
}

// Record registers one donor's acknowledgement of an alert, resolved by the
// recipient email embedded in the public response link. Callers must present
// the same neutral acknowledgement for ErrUnknownDonor as for success so the
// endpoint cannot be used to enumerate registered emails.
func (rec *recorder) Record(ctx context.Context, email, bloodType string) error {
	email = core.CleanString(email, true /* lower */)
	bloodType = strings.ToUpper(core.CleanString(bloodType))
	if email == "" || bloodType == "" {
		return ErrInvalidLink
	}

	d, err := rec.donors.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == donor.ErrNotFound {
			return ErrUnknownDonor
		}
		return errors.Wrap(err, "resolving donor by email")
	}

	now := NowFunc().UTC()
	resp := DonorResponse{
		DonorID:     d.ID,
		BloodType:   bloodType,
		RespondedAt: now,
	}
	if _, err = rec.responses.CreateDonorResponse(ctx, resp); err != nil {
		return errors.Wrap(err, "recording donor response")
	}
	if err = rec.donors.SetLastResponse(ctx, d.ID, now); err != nil {
		return errors.Wrap(err, "marking last response")
	}
	return nil
}

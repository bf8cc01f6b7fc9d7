package alert

import (
	"strings"
	"time"

	"github.com/trezcool/lifeline/core"
	"github.com/trezcool/lifeline/core/donor"
)

// Criteria describes one emergency alert broadcast request.
// Immutable once validated; all public fields are required.
type Criteria struct {
	BloodType    string `json:"bloodgroup" form:"bloodgroup" validate:"required,bloodtype"`
	Pincode      string `json:"pincode" form:"pincode" validate:"required,pincode"`
	ContactPhone string `json:"contact_phone" form:"contact_phone" validate:"required,phone"`
	TriggeredBy  string `json:"-" form:"-"`
}

func (c *Criteria) Validate() error {
	c.BloodType = strings.ToUpper(core.CleanString(c.BloodType))
	c.Pincode = core.CleanString(c.Pincode)
	c.ContactPhone = core.CleanString(c.ContactPhone)
	return core.Validate.Struct(c)
}

// Recipient is a read-only contact projection of a matched donor.
// An empty Phone means the donor cannot be reached by SMS.
type Recipient struct {
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

func newRecipients(contacts []donor.Contact) []Recipient {
	recipients := make([]Recipient, 0, len(contacts))
	for _, c := range contacts {
		recipients = append(recipients, Recipient{Email: c.Email, Phone: c.Phone})
	}
	return recipients
}

// Result aggregates the outcome of one dispatch. It is finalized once the
// recipient loop completes and never mutated afterwards.
//
// Invariants: EmailSent+EmailFailed == len(MatchedRecipients);
// SmsSent+SmsFailed <= len(MatchedRecipients) (SMS is only attempted when a
// phone number is present and the channel is configured).
type Result struct {
	MatchedRecipients []Recipient `json:"-"`
	Matched           int         `json:"matched"`
	UsedFallback      bool        `json:"used_fallback"`
	EmailSent         int         `json:"email_sent"`
	EmailFailed       int         `json:"email_failed"`
	SmsSent           int         `json:"sms_sent"`
	SmsFailed         int         `json:"sms_failed"`
}

// Audit is the append-only compliance record of a triggered alert.
type Audit struct {
	ID           string    `json:"id"`
	BloodType    string    `json:"blood_type"`
	Pincode      string    `json:"pincode"`
	ContactPhone string    `json:"contact_phone"`
	TriggeredBy  string    `json:"triggered_by,omitempty"`
	UsedFallback bool      `json:"used_fallback"`
	Matched      int       `json:"matched"`
	EmailSent    int       `json:"email_sent"`
	EmailFailed  int       `json:"email_failed"`
	SmsSent      int       `json:"sms_sent"`
	SmsFailed    int       `json:"sms_failed"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

func newAudit(c Criteria, res Result) Audit {
	return Audit{
		BloodType:    c.BloodType,
		Pincode:      c.Pincode,
		ContactPhone: c.ContactPhone,
		TriggeredBy:  c.TriggeredBy,
		UsedFallback: res.UsedFallback,
		Matched:      res.Matched,
		EmailSent:    res.EmailSent,
		EmailFailed:  res.EmailFailed,
		SmsSent:      res.SmsSent,
		SmsFailed:    res.SmsFailed,
		CreatedAt:    time.Now().UTC(),
	}
}

// DonorResponse records one donor acknowledging an alert. Append-only;
// repeated clicks on the same link create distinct records.
type DonorResponse struct {
	ID          string    `json:"id"`
	DonorID     string    `json:"donor_id"`
	BloodType   string    `json:"blood_type"`
	RespondedAt time.Time `json:"responded_at"` // UTC
}

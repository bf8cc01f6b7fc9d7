package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/lifeline/core/alert"
)

type auditRow struct {
	ID           string         `db:"id"`
	BloodType    string         `db:"blood_type"`
	Pincode      string         `db:"pincode"`
	ContactPhone string         `db:"contact_phone"`
	TriggeredBy  sql.NullString `db:"triggered_by"`
	UsedFallback bool           `db:"used_fallback"`
	Matched      int            `db:"matched"`
	EmailSent    int            `db:"email_sent"`
	EmailFailed  int            `db:"email_failed"`
	SmsSent      int            `db:"sms_sent"`
	SmsFailed    int            `db:"sms_failed"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r auditRow) audit() alert.Audit {
	return alert.Audit{
		ID:           r.ID,
		BloodType:    r.BloodType,
		Pincode:      r.Pincode,
		ContactPhone: r.ContactPhone,
		TriggeredBy:  r.TriggeredBy.String,
		UsedFallback: r.UsedFallback,
		Matched:      r.Matched,
		EmailSent:    r.EmailSent,
		EmailFailed:  r.EmailFailed,
		SmsSent:      r.SmsSent,
		SmsFailed:    r.SmsFailed,
		CreatedAt:    r.CreatedAt,
	}
}

type alertRepository struct {
	db *sqlx.DB
}

var (
	_ alert.AuditLog    = (*alertRepository)(nil)
	_ alert.ResponseLog = (*alertRepository)(nil)
)

func NewAlertRepository(db *sqlx.DB) *alertRepository {
	return &alertRepository{db: db}
}

func (repo alertRepository) CreateAudit(ctx context.Context, a alert.Audit) (alert.Audit, error) {
	a.ID = uuid.New().String()
	row := auditRow{
		ID:           a.ID,
		BloodType:    a.BloodType,
		Pincode:      a.Pincode,
		ContactPhone: a.ContactPhone,
		TriggeredBy:  nullStr(a.TriggeredBy),
		UsedFallback: a.UsedFallback,
		Matched:      a.Matched,
		EmailSent:    a.EmailSent,
		EmailFailed:  a.EmailFailed,
		SmsSent:      a.SmsSent,
		SmsFailed:    a.SmsFailed,
		CreatedAt:    a.CreatedAt,
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO alert_audit (id, blood_type, pincode, contact_phone, triggered_by, used_fallback,
		                         matched, email_sent, email_failed, sms_sent, sms_failed, created_at)
		VALUES (:id, :blood_type, :pincode, :contact_phone, :triggered_by, :used_fallback,
		        :matched, :email_sent, :email_failed, :sms_sent, :sms_failed, :created_at)`,
		row,
	)
	if err != nil {
		return alert.Audit{}, errors.Wrap(err, "creating alert audit")
	}
	return row.audit(), nil
}

// QueryAudit returns the alert history, newest first.
func (repo alertRepository) QueryAudit(ctx context.Context) ([]alert.Audit, error) {
	var rows []auditRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM alert_audit ORDER BY created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "querying alert audit")
	}
	audits := make([]alert.Audit, 0, len(rows))
	for _, r := range rows {
		audits = append(audits, r.audit())
	}
	return audits, nil
}

func (repo alertRepository) CreateDonorResponse(ctx context.Context, resp alert.DonorResponse) (alert.DonorResponse, error) {
	resp.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO donor_responses (id, donor_id, blood_type, responded_at)
		VALUES ($1, $2, $3, $4)`,
		resp.ID, resp.DonorID, resp.BloodType, resp.RespondedAt,
	)
	if err != nil {
		return alert.DonorResponse{}, errors.Wrap(err, "creating donor response")
	}
	return resp, nil
}

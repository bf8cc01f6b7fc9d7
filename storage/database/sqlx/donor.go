package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lifeline/core/donor"
)

type donorRow struct {
	ID             string       `db:"id"`
	UserID         string       `db:"user_id"`
	Name           string       `db:"name"`
	DOB            sql.NullTime `db:"dob"`
	Gender         string       `db:"gender"`
	Phone          string       `db:"phone"`
	City           string       `db:"city"`
	Pincode        string       `db:"pincode"`
	BloodType      string       `db:"blood_type"`
	PictureURL     null.String  `db:"picture_url"`
	LastResponseAt null.Time    `db:"last_response_at"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
}

func (r donorRow) donor() donor.Donor {
	return donor.Donor{
		ID:             r.ID,
		UserID:         r.UserID,
		Name:           r.Name,
		DOB:            r.DOB.Time,
		Gender:         r.Gender,
		Phone:          r.Phone,
		City:           r.City,
		Pincode:        r.Pincode,
		BloodType:      r.BloodType,
		PictureURL:     r.PictureURL,
		LastResponseAt: r.LastResponseAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func newDonorRow(d donor.Donor) donorRow {
	return donorRow{
		ID:             d.ID,
		UserID:         d.UserID,
		Name:           d.Name,
		DOB:            nullTime(d.DOB),
		Gender:         d.Gender,
		Phone:          d.Phone,
		City:           d.City,
		Pincode:        d.Pincode,
		BloodType:      d.BloodType,
		PictureURL:     d.PictureURL,
		LastResponseAt: d.LastResponseAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

type contactRow struct {
	DonorID string         `db:"donor_id"`
	Name    string         `db:"name"`
	Email   sql.NullString `db:"email"`
	Phone   string         `db:"phone"`
}

func (r contactRow) contact() donor.Contact {
	return donor.Contact{
		DonorID: r.DonorID,
		Name:    r.Name,
		Email:   r.Email.String,
		Phone:   r.Phone,
	}
}

type donorRepository struct {
	db *sqlx.DB
}

var _ donor.Repository = (*donorRepository)(nil)

func NewDonorRepository(db *sqlx.DB) *donorRepository {
	return &donorRepository{db: db}
}

func (repo donorRepository) CreateDonor(ctx context.Context, d donor.Donor) (donor.Donor, error) {
	now := time.Now().UTC()
	d.ID = uuid.New().String()
	d.CreatedAt = now
	d.UpdatedAt = now

	row := newDonorRow(d)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO donors (id, user_id, name, dob, gender, phone, city, pincode, blood_type, picture_url, last_response_at, created_at, updated_at)
		VALUES (:id, :user_id, :name, :dob, :gender, :phone, :city, :pincode, :blood_type, :picture_url, :last_response_at, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return donor.Donor{}, errors.Wrap(err, "creating donor")
	}
	return row.donor(), nil
}

func (repo donorRepository) getDonor(ctx context.Context, q string, args ...interface{}) (donor.Donor, error) {
	var row donorRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return donor.Donor{}, donor.ErrNotFound
		}
		return donor.Donor{}, errors.Wrap(err, "getting donor")
	}
	return row.donor(), nil
}

func (repo donorRepository) GetDonorByID(ctx context.Context, id string) (donor.Donor, error) {
	return repo.getDonor(ctx, `SELECT * FROM donors WHERE id = $1`, id)
}

func (repo donorRepository) GetDonorByUserID(ctx context.Context, userID string) (donor.Donor, error) {
	return repo.getDonor(ctx, `SELECT * FROM donors WHERE user_id = $1`, userID)
}

func (repo donorRepository) GetDonorByEmail(ctx context.Context, email string) (donor.Donor, error) {
	return repo.getDonor(ctx, `
		SELECT d.* FROM donors d
		JOIN users u ON u.id = d.user_id
		WHERE u.email = $1`,
		email,
	)
}

func (repo donorRepository) MatchDonors(ctx context.Context, bloodType, pincode string) ([]donor.Contact, error) {
	return repo.queryContacts(ctx, `
		SELECT d.id AS donor_id, d.name, u.email, d.phone
		FROM donors d
		JOIN users u ON u.id = d.user_id
		WHERE u.is_active AND u.email IS NOT NULL
		  AND d.blood_type = $1 AND d.pincode = $2
		ORDER BY d.created_at`,
		bloodType, pincode,
	)
}

func (repo donorRepository) AllDonorsWithContact(ctx context.Context) ([]donor.Contact, error) {
	return repo.queryContacts(ctx, `
		SELECT d.id AS donor_id, d.name, u.email, d.phone
		FROM donors d
		JOIN users u ON u.id = d.user_id
		WHERE u.is_active AND u.email IS NOT NULL
		ORDER BY d.created_at`,
	)
}

func (repo donorRepository) queryContacts(ctx context.Context, q string, args ...interface{}) ([]donor.Contact, error) {
	var rows []contactRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying donor contacts")
	}
	contacts := make([]donor.Contact, 0, len(rows))
	for _, r := range rows {
		contacts = append(contacts, r.contact())
	}
	return contacts, nil
}

func (repo donorRepository) SearchDonors(ctx context.Context, filter *donor.SearchFilter) ([]donor.Donor, error) {
	q := `SELECT * FROM donors`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil && !filter.IsEmpty() {
		if filter.BloodType != "" {
			conds = append(conds, fmt.Sprintf("blood_type = %s", arg(filter.BloodType)))
		}
		if filter.Pincode != "" {
			conds = append(conds, fmt.Sprintf("pincode = %s", arg(filter.Pincode)))
		}
		if filter.City != "" {
			conds = append(conds, fmt.Sprintf("city ILIKE %s", arg(filter.City)))
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY name"

	var rows []donorRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "searching donors")
	}
	donors := make([]donor.Donor, 0, len(rows))
	for _, r := range rows {
		donors = append(donors, r.donor())
	}
	return donors, nil
}

func (repo donorRepository) UpdateDonor(ctx context.Context, d donor.Donor) (donor.Donor, error) {
	d.UpdatedAt = time.Now().UTC()

	row := newDonorRow(d)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE donors
		SET name = :name, dob = :dob, gender = :gender, phone = :phone, city = :city,
		    pincode = :pincode, blood_type = :blood_type, picture_url = :picture_url,
		    last_response_at = :last_response_at, updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return donor.Donor{}, errors.Wrap(err, "updating donor")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return donor.Donor{}, donor.ErrNotFound
	}
	return row.donor(), nil
}

func (repo donorRepository) SetLastResponse(ctx context.Context, donorID string, at time.Time) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE donors SET last_response_at = $1, updated_at = $1 WHERE id = $2`, at, donorID)
	if err != nil {
		return errors.Wrap(err, "marking last response")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return donor.ErrNotFound
	}
	return nil
}

func (repo donorRepository) Leaderboard(ctx context.Context, limit int) ([]donor.LeaderboardEntry, error) {
	type entryRow struct {
		DonorID        string    `db:"donor_id"`
		Name           string    `db:"name"`
		BloodType      string    `db:"blood_type"`
		City           string    `db:"city"`
		Responses      int       `db:"responses"`
		LastResponseAt null.Time `db:"last_response_at"`
	}

	var rows []entryRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT d.id AS donor_id, d.name, d.blood_type, d.city,
		       COUNT(r.id) AS responses, d.last_response_at
		FROM donors d
		JOIN donor_responses r ON r.donor_id = d.id
		GROUP BY d.id
		ORDER BY responses DESC, d.last_response_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying leaderboard")
	}

	entries := make([]donor.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, donor.LeaderboardEntry{
			DonorID:        r.DonorID,
			Name:           r.Name,
			BloodType:      r.BloodType,
			City:           r.City,
			Responses:      r.Responses,
			LastResponseAt: r.LastResponseAt,
		})
	}
	return entries, nil
}

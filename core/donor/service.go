package donor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/lifeline/core"
)

var (
	// errors
	ErrNotFound      = errors.New("donor not found")
	ErrProfileExists = errors.New("a donor profile already exists for this user")
)

const leaderboardSize = 20

type (
	Repository interface {
		CreateDonor(ctx context.Context, d Donor) (Donor, error)
		GetDonorByID(ctx context.Context, id string) (Donor, error)
		GetDonorByUserID(ctx context.Context, userID string) (Donor, error)
		// GetDonorByEmail resolves a donor through their account's email.
		GetDonorByEmail(ctx context.Context, email string) (Donor, error)
		// MatchDonors returns notification contacts for donors whose blood
		// type and pincode both equal the arguments.
		MatchDonors(ctx context.Context, bloodType, pincode string) ([]Contact, error)
		// AllDonorsWithContact returns contacts for every donor with a
		// non-empty email or phone.
		AllDonorsWithContact(ctx context.Context) ([]Contact, error)
		SearchDonors(ctx context.Context, filter *SearchFilter) ([]Donor, error)
		UpdateDonor(ctx context.Context, d Donor) (Donor, error)
		SetLastResponse(ctx context.Context, donorID string, at time.Time) error
		// Leaderboard ranks donors by recorded alert responses, descending.
		Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	}

	Service interface {
		CreateProfile(ctx context.Context, nd NewDonor) (Donor, error)
		GetByID(ctx context.Context, id string) (Donor, error)
		GetByUserID(ctx context.Context, userID string) (Donor, error)
		GetByEmail(ctx context.Context, email string) (Donor, error)
		UpdateProfile(ctx context.Context, userID string, ud UpdateDonor) (Donor, error)
		Search(ctx context.Context, filter *SearchFilter) ([]Donor, error)

		// directory operations used by the alert dispatcher
		MatchDonors(ctx context.Context, bloodType, pincode string) ([]Contact, error)
		AllDonorsWithContact(ctx context.Context) ([]Contact, error)
		SetLastResponse(ctx context.Context, donorID string, at time.Time) error

		Leaderboard(ctx context.Context) ([]LeaderboardEntry, error)
		RefreshLeaderboard(ctx context.Context) error
	}

	service struct {
		repo   Repository
		logger core.Logger

		mu          sync.RWMutex
		leaderboard []LeaderboardEntry
		refreshedAt time.Time
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (svc *service) CreateProfile(ctx context.Context, nd NewDonor) (Donor, error) {
	if _, err := svc.repo.GetDonorByUserID(ctx, nd.UserID); err == nil {
		return Donor{}, ErrProfileExists
	} else if errors.Cause(err) != ErrNotFound {
		return Donor{}, err
	}

	dob, err := time.Parse("2006-01-02", nd.DOB)
	if err != nil {
		return Donor{}, core.NewValidationError(err, core.FieldError{Field: "dob", Error: "invalid date"})
	}

	now := time.Now().UTC()
	d := Donor{
		UserID:    nd.UserID,
		Name:      nd.Name,
		DOB:       dob,
		Gender:    nd.Gender,
		Phone:     nd.Phone,
		City:      nd.City,
		Pincode:   nd.Pincode,
		BloodType: nd.BloodType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateDonor(ctx, d)
}

func (svc *service) GetByID(ctx context.Context, id string) (Donor, error) {
	return svc.repo.GetDonorByID(ctx, id)
}

func (svc *service) GetByUserID(ctx context.Context, userID string) (Donor, error) {
	return svc.repo.GetDonorByUserID(ctx, userID)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Donor, error) {
	return svc.repo.GetDonorByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) UpdateProfile(ctx context.Context, userID string, ud UpdateDonor) (Donor, error) {
	d, err := svc.repo.GetDonorByUserID(ctx, userID)
	if err != nil {
		return Donor{}, err
	}

	if ud.Name != "" {
		d.Name = ud.Name
	}
	if ud.DOB != "" {
		dob, err := time.Parse("2006-01-02", ud.DOB)
		if err != nil {
			return Donor{}, core.NewValidationError(err, core.FieldError{Field: "dob", Error: "invalid date"})
		}
		d.DOB = dob
	}
	if ud.Phone != "" {
		d.Phone = ud.Phone
	}
	if ud.City != "" {
		d.City = ud.City
	}
	if ud.Pincode != "" {
		d.Pincode = ud.Pincode
	}
	if ud.BloodType != "" {
		d.BloodType = ud.BloodType
	}
	d.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateDonor(ctx, d)
}

func (svc *service) Search(ctx context.Context, filter *SearchFilter) ([]Donor, error) {
	filter.Clean()
	return svc.repo.SearchDonors(ctx, filter)
}

func (svc *service) MatchDonors(ctx context.Context, bloodType, pincode string) ([]Contact, error) {
	return svc.repo.MatchDonors(ctx, bloodType, pincode)
}

func (svc *service) AllDonorsWithContact(ctx context.Context) ([]Contact, error) {
	return svc.repo.AllDonorsWithContact(ctx)
}

func (svc *service) SetLastResponse(ctx context.Context, donorID string, at time.Time) error {
	return svc.repo.SetLastResponse(ctx, donorID, at)
}

// Leaderboard serves the cached snapshot, querying through on a cold cache.
// The snapshot is refreshed on a schedule by the API entrypoint.
func (svc *service) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	svc.mu.RLock()
	cached := svc.leaderboard
	svc.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	if err := svc.RefreshLeaderboard(ctx); err != nil {
		return nil, err
	}
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return svc.leaderboard, nil
}

func (svc *service) RefreshLeaderboard(ctx context.Context) error {
	entries, err := svc.repo.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		return errors.Wrap(err, "querying leaderboard")
	}
	if entries == nil {
		entries = []LeaderboardEntry{}
	}

	svc.mu.Lock()
	svc.leaderboard = entries
	svc.refreshedAt = time.Now().UTC()
	svc.mu.Unlock()
	return nil
}

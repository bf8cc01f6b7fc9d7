package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lifeline/core/donor"
)

type donorRepository struct {
	db *DB
}

var _ donor.Repository = (*donorRepository)(nil)

func NewDonorRepository(db *DB) *donorRepository {
	return &donorRepository{db: db}
}

func (repo *donorRepository) query() []donor.Donor {
	donors := make([]donor.Donor, 0, len(repo.db.donors))
	for _, d := range repo.db.donors {
		donors = append(donors, *d)
	}
	sort.Slice(donors, func(i, j int) bool { return donors[i].CreatedAt.Before(donors[j].CreatedAt) })
	return donors
}

func (repo *donorRepository) contact(d donor.Donor) donor.Contact {
	var email string
	if usr, ok := repo.db.users[d.UserID]; ok {
		email = usr.Email
	}
	return donor.Contact{DonorID: d.ID, Name: d.Name, Email: email, Phone: d.Phone}
}

func (repo *donorRepository) CreateDonor(ctx context.Context, d donor.Donor) (donor.Donor, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	now := time.Now().UTC()
	d.ID = uuid.New().String()
	d.CreatedAt = now
	d.UpdatedAt = now
	repo.db.donors[d.ID] = &d
	return d, nil
}

func (repo *donorRepository) GetDonorByID(ctx context.Context, id string) (donor.Donor, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if d, ok := repo.db.donors[id]; ok {
		return *d, nil
	}
	return donor.Donor{}, donor.ErrNotFound
}

func (repo *donorRepository) GetDonorByUserID(ctx context.Context, userID string) (donor.Donor, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, d := range repo.query() {
		if d.UserID == userID {
			return d, nil
		}
	}
	return donor.Donor{}, donor.ErrNotFound
}

func (repo *donorRepository) GetDonorByEmail(ctx context.Context, email string) (donor.Donor, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, d := range repo.query() {
		if usr, ok := repo.db.users[d.UserID]; ok && usr.Email == email {
			return d, nil
		}
	}
	return donor.Donor{}, donor.ErrNotFound
}

func (repo *donorRepository) MatchDonors(ctx context.Context, bloodType, pincode string) ([]donor.Contact, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	contacts := make([]donor.Contact, 0)
	for _, d := range repo.query() {
		if d.BloodType == bloodType && d.Pincode == pincode {
			if c := repo.contact(d); c.Email != "" {
				contacts = append(contacts, c)
			}
		}
	}
	return contacts, nil
}

func (repo *donorRepository) AllDonorsWithContact(ctx context.Context) ([]donor.Contact, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	contacts := make([]donor.Contact, 0)
	for _, d := range repo.query() {
		if c := repo.contact(d); c.Email != "" {
			contacts = append(contacts, c)
		}
	}
	return contacts, nil
}

func (repo *donorRepository) SearchDonors(ctx context.Context, filter *donor.SearchFilter) ([]donor.Donor, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	donors := make([]donor.Donor, 0)
	for _, d := range repo.query() {
		if filter != nil && !filter.IsEmpty() {
			if filter.BloodType != "" && d.BloodType != filter.BloodType {
				continue
			}
			if filter.Pincode != "" && d.Pincode != filter.Pincode {
				continue
			}
			if filter.City != "" && !strings.EqualFold(d.City, filter.City) {
				continue
			}
		}
		donors = append(donors, d)
	}
	sort.Slice(donors, func(i, j int) bool { return donors[i].Name < donors[j].Name })
	return donors, nil
}

func (repo *donorRepository) UpdateDonor(ctx context.Context, d donor.Donor) (donor.Donor, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.donors[d.ID]
	if !ok {
		return donor.Donor{}, donor.ErrNotFound
	}
	d.CreatedAt = orig.CreatedAt
	d.UpdatedAt = time.Now().UTC()
	repo.db.donors[d.ID] = &d
	return d, nil
}

func (repo *donorRepository) SetLastResponse(ctx context.Context, donorID string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	d, ok := repo.db.donors[donorID]
	if !ok {
		return donor.ErrNotFound
	}
	d.LastResponseAt = null.TimeFrom(at)
	d.UpdatedAt = at
	return nil
}

func (repo *donorRepository) Leaderboard(ctx context.Context, limit int) ([]donor.LeaderboardEntry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	counts := make(map[string]int)
	for _, resp := range repo.db.responses {
		counts[resp.DonorID]++
	}

	entries := make([]donor.LeaderboardEntry, 0, len(counts))
	for donorID, n := range counts {
		d, ok := repo.db.donors[donorID]
		if !ok {
			continue
		}
		entries = append(entries, donor.LeaderboardEntry{
			DonorID:        d.ID,
			Name:           d.Name,
			BloodType:      d.BloodType,
			City:           d.City,
			Responses:      n,
			LastResponseAt: d.LastResponseAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Responses != entries[j].Responses {
			return entries[i].Responses > entries[j].Responses
		}
		return entries[i].LastResponseAt.Time.After(entries[j].LastResponseAt.Time)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

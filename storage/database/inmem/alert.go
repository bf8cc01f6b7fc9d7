package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/lifeline/core/alert"
)

type alertRepository struct {
	db *DB
}

var (
	_ alert.AuditLog    = (*alertRepository)(nil)
	_ alert.ResponseLog = (*alertRepository)(nil)
)

func NewAlertRepository(db *DB) *alertRepository {
	return &alertRepository{db: db}
}

func (repo *alertRepository) CreateAudit(ctx context.Context, a alert.Audit) (alert.Audit, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a.ID = uuid.New().String()
	repo.db.audits[a.ID] = &a
	return a, nil
}

func (repo *alertRepository) QueryAudit(ctx context.Context) ([]alert.Audit, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	audits := make([]alert.Audit, 0, len(repo.db.audits))
	for _, a := range repo.db.audits {
		audits = append(audits, *a)
	}
	sort.Slice(audits, func(i, j int) bool { return audits[i].CreatedAt.After(audits[j].CreatedAt) })
	return audits, nil
}

func (repo *alertRepository) CreateDonorResponse(ctx context.Context, resp alert.DonorResponse) (alert.DonorResponse, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	resp.ID = uuid.New().String()
	repo.db.responses[resp.ID] = &resp
	return resp, nil
}

package postgres

import (
	"context"
	"time"

	"github.com/reservehq/reserve-personnel/internal/policy"
	"gorm.io/gorm"
)

// PolicyRepository implements the policy.Repository interface using GORM
type PolicyRepository struct {
	db *gorm.DB
}

func NewPolicyRepository(db *gorm.DB) policy.Repository {
	return &PolicyRepository{db: db}
}

func (r *PolicyRepository) Create(ctx context.Context, p *policy.Policy) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PolicyRepository) GetByID(ctx context.Context, id int64) (*policy.Policy, error) {
	var record policy.Policy
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, policy.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *PolicyRepository) List(ctx context.Context, activeOnly bool) ([]*policy.Policy, error) {
	var records []*policy.Policy
	query := r.db.WithContext(ctx).Order("effective_at DESC")
	if activeOnly {
		query = query.Where("retired_at IS NULL")
	}
	err := query.Find(&records).Error
	return records, err
}

func (r *PolicyRepository) Update(ctx context.Context, p *policy.Policy) error {
	p.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *PolicyRepository) CreateAcknowledgement(ctx context.Context, a *policy.Acknowledgement) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *PolicyRepository) GetAcknowledgement(ctx context.Context, policyID, userID int64) (*policy.Acknowledgement, error) {
	var record policy.Acknowledgement
	err := r.db.WithContext(ctx).
		Where("policy_id = ? AND user_id = ?", policyID, userID).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *PolicyRepository) ListAcknowledgements(ctx context.Context, policyID int64) ([]*policy.Acknowledgement, error) {
	var records []*policy.Acknowledgement
	err := r.db.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Order("acknowledged_at ASC").
		Find(&records).Error
	return records, err
}

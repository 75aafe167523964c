package postgres

import (
	"context"
	"time"

	"github.com/reservehq/reserve-personnel/internal/accountrequest"
	"gorm.io/gorm"
)

// AccountRequestRepository implements the accountrequest.Repository interface using GORM
type AccountRequestRepository struct {
	db *gorm.DB
}

func NewAccountRequestRepository(db *gorm.DB) accountrequest.Repository {
	return &AccountRequestRepository{db: db}
}

func (r *AccountRequestRepository) Create(ctx context.Context, req *accountrequest.AccountRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *AccountRequestRepository) GetByID(ctx context.Context, id int64) (*accountrequest.AccountRequest, error) {
	var req accountrequest.AccountRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, accountrequest.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *AccountRequestRepository) List(ctx context.Context, status string) ([]*accountrequest.AccountRequest, error) {
	var requests []*accountrequest.AccountRequest
	query := r.db.WithContext(ctx).Order("submitted_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&requests).Error
	return requests, err
}

// Decide applies the terminal status only if the row is still pending. The
// WHERE clause is the concurrency guard: a lost race shows up as zero
// affected rows, never as an overwrite.
func (r *AccountRequestRepository) Decide(ctx context.Context, id int64, status string, reason *string, decidedAt time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     status,
		"decided_at": decidedAt,
		"updated_at": decidedAt,
	}
	if reason != nil {
		updates["rejection_reason"] = *reason
	}

	result := r.db.WithContext(ctx).
		Model(&accountrequest.AccountRequest{}).
		Where("id = ? AND status = ?", id, accountrequest.StatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

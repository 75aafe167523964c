package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/reservehq/reserve-personnel/internal/audit"
	"gorm.io/gorm"
)

// AuditRepository implements the audit.Repository interface using GORM
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.Repository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(ctx context.Context, entry *audit.Entry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Search returns a newest-first slice plus the total match count.
func (r *AuditRepository) Search(ctx context.Context, filter audit.Filter, limit, offset int) ([]*audit.Entry, int64, error) {
	query := r.db.WithContext(ctx).Model(&audit.Entry{})

	if filter.Action != "" {
		query = query.Where("action = ?", string(filter.Action))
	}
	if filter.Resource != "" {
		query = query.Where("resource = ?", filter.Resource)
	}
	if filter.StartDate != nil {
		query = query.Where("timestamp >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("timestamp <= ?", *filter.EndDate)
	}
	if filter.SearchTerm != "" {
		term := "%" + strings.ToLower(filter.SearchTerm) + "%"
		query = query.Where("LOWER(actor_name) LIKE ? OR LOWER(details) LIKE ?", term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*audit.Entry
	err := query.
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&audit.Entry{})
	return result.RowsAffected, result.Error
}

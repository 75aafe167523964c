package postgres

import (
	"context"
	"time"

	"github.com/reservehq/reserve-personnel/internal/personnel"
	"gorm.io/gorm"
)

// PersonnelRepository implements the personnel.Repository interface using GORM
type PersonnelRepository struct {
	db *gorm.DB
}

func NewPersonnelRepository(db *gorm.DB) personnel.Repository {
	return &PersonnelRepository{db: db}
}

func (r *PersonnelRepository) Create(ctx context.Context, p *personnel.Personnel) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PersonnelRepository) GetByID(ctx context.Context, id int64) (*personnel.Personnel, error) {
	var record personnel.Personnel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, personnel.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *PersonnelRepository) GetByEmail(ctx context.Context, email string) (*personnel.Personnel, error) {
	var record personnel.Personnel
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, personnel.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *PersonnelRepository) List(ctx context.Context, company string) ([]*personnel.Personnel, error) {
	var records []*personnel.Personnel
	query := r.db.WithContext(ctx).Order("name ASC")
	if company != "" {
		query = query.Where("company = ?", company)
	}
	err := query.Find(&records).Error
	return records, err
}

func (r *PersonnelRepository) Update(ctx context.Context, p *personnel.Personnel) error {
	p.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *PersonnelRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&personnel.Personnel{}, id).Error
}

package postgres

import (
	"context"
	"time"

	"github.com/reservehq/reserve-personnel/internal/training"
	"gorm.io/gorm"
)

// TrainingRepository implements the training.Repository interface using GORM
type TrainingRepository struct {
	db *gorm.DB
}

func NewTrainingRepository(db *gorm.DB) training.Repository {
	return &TrainingRepository{db: db}
}

func (r *TrainingRepository) Create(ctx context.Context, t *training.Training) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TrainingRepository) GetByID(ctx context.Context, id int64) (*training.Training, error) {
	var record training.Training
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, training.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *TrainingRepository) List(ctx context.Context) ([]*training.Training, error) {
	var records []*training.Training
	err := r.db.WithContext(ctx).Order("scheduled_at DESC").Find(&records).Error
	return records, err
}

func (r *TrainingRepository) Update(ctx context.Context, t *training.Training) error {
	t.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *TrainingRepository) CreateCompletion(ctx context.Context, c *training.Completion) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *TrainingRepository) ListCompletions(ctx context.Context, trainingID int64) ([]*training.Completion, error) {
	var records []*training.Completion
	err := r.db.WithContext(ctx).
		Where("training_id = ?", trainingID).
		Order("completed_at DESC").
		Find(&records).Error
	return records, err
}

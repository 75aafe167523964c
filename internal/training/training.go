package training

import (
	"strings"
	"time"

	"github.com/reservehq/reserve-personnel/internal"
)

type Training struct {
	ID            int64     `json:"id" gorm:"primaryKey"`
	Title         string    `json:"title" gorm:"not null"`
	Description   string    `json:"description"`
	Category      string    `json:"category" gorm:"column:category"`
	Location      string    `json:"location"`
	ScheduledAt   time.Time `json:"scheduled_at" gorm:"column:scheduled_at"`
	DurationHours int       `json:"duration_hours" gorm:"column:duration_hours"`
	CreatedAt     time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Training) TableName() string {
	return "trainings"
}

// Completion records one member finishing one training session.
type Completion struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	TrainingID  int64     `json:"training_id" gorm:"column:training_id;index;not null"`
	PersonnelID int64     `json:"personnel_id" gorm:"column:personnel_id;index;not null"`
	CompletedAt time.Time `json:"completed_at" gorm:"column:completed_at"`
	Score       *int      `json:"score,omitempty" gorm:"column:score"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Completion) TableName() string {
	return "training_completions"
}

var ErrNotFound = internal.NewNotFoundError("Training not found", internal.ErrCodeTrainingNotFound)

type CreateTrainingDTO struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Location      string    `json:"location"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	DurationHours int       `json:"duration_hours"`
}

func (dto CreateTrainingDTO) Validate() error {
	if strings.TrimSpace(dto.Title) == "" {
		return internal.NewValidationFieldError("title", "title is required", internal.ErrCodeValidationFailed)
	}
	if dto.ScheduledAt.IsZero() {
		return internal.NewValidationFieldError("scheduled_at", "scheduled_at is required", internal.ErrCodeValidationFailed)
	}
	if dto.DurationHours < 0 {
		return internal.NewValidationFieldError("duration_hours", "duration_hours must not be negative", internal.ErrCodeValidationFailed)
	}
	return nil
}

type UpdateTrainingDTO struct {
	Title         *string    `json:"title,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Category      *string    `json:"category,omitempty"`
	Location      *string    `json:"location,omitempty"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
	DurationHours *int       `json:"duration_hours,omitempty"`
}

type RecordCompletionDTO struct {
	PersonnelID int64  `json:"personnel_id"`
	Score       *int   `json:"score,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

func (dto RecordCompletionDTO) Validate() error {
	if dto.PersonnelID <= 0 {
		return internal.NewValidationFieldError("personnel_id", "personnel_id is required", internal.ErrCodeValidationFailed)
	}
	if dto.Score != nil && (*dto.Score < 0 || *dto.Score > 100) {
		return internal.NewValidationFieldError("score", "score must be between 0 and 100", internal.ErrCodeValidationFailed)
	}
	return nil
}

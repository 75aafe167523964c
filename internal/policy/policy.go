package policy

import (
	"strings"
	"time"

	"github.com/reservehq/reserve-personnel/internal"
)

// Policy is a unit-level standing order or directive that members are
// expected to read and acknowledge.
type Policy struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title" gorm:"not null"`
	Body        string     `json:"body" gorm:"type:text"`
	Category    string     `json:"category"`
	EffectiveAt time.Time  `json:"effective_at" gorm:"column:effective_at"`
	RetiredAt   *time.Time `json:"retired_at,omitempty" gorm:"column:retired_at"`
	CreatedAt   time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (Policy) TableName() string {
	return "policies"
}

func (p *Policy) Active() bool {
	return p.RetiredAt == nil
}

// Acknowledgement records that one user has read one policy.
type Acknowledgement struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	PolicyID       int64     `json:"policy_id" gorm:"column:policy_id;index;not null"`
	UserID         int64     `json:"user_id" gorm:"column:user_id;index;not null"`
	AcknowledgedAt time.Time `json:"acknowledged_at" gorm:"column:acknowledged_at"`
}

func (Acknowledgement) TableName() string {
	return "policy_acknowledgements"
}

var ErrNotFound = internal.NewNotFoundError("Policy not found", internal.ErrCodePolicyNotFound)

type CreatePolicyDTO struct {
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Category    string    `json:"category"`
	EffectiveAt time.Time `json:"effective_at"`
}

func (dto CreatePolicyDTO) Validate() error {
	if strings.TrimSpace(dto.Title) == "" {
		return internal.NewValidationFieldError("title", "title is required", internal.ErrCodeValidationFailed)
	}
	if strings.TrimSpace(dto.Body) == "" {
		return internal.NewValidationFieldError("body", "body is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type UpdatePolicyDTO struct {
	Title       *string    `json:"title,omitempty"`
	Body        *string    `json:"body,omitempty"`
	Category    *string    `json:"category,omitempty"`
	EffectiveAt *time.Time `json:"effective_at,omitempty"`
}

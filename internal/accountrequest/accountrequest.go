package accountrequest

import (
	"time"

	"github.com/reservehq/reserve-personnel/internal"
)

// AccountRequest is a prospective reservist's application for a personnel
// account. It is mutated exactly once, from pending to a terminal state, and
// is never deleted afterwards.
type AccountRequest struct {
	ID              int64      `json:"id" gorm:"primaryKey"`
	Name            string     `json:"name" gorm:"not null"`
	Email           string     `json:"email" gorm:"uniqueIndex;not null"`
	Rank            string     `json:"rank" gorm:"column:rank"`
	Company         string     `json:"company" gorm:"column:company"`
	Status          string     `json:"status" gorm:"column:status;default:pending;index"`
	RejectionReason *string    `json:"rejection_reason,omitempty" gorm:"column:rejection_reason"`
	SubmittedAt     time.Time  `json:"submitted_at" gorm:"column:submitted_at"`
	DecidedAt       *time.Time `json:"decided_at,omitempty" gorm:"column:decided_at"`
	CreatedAt       time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (AccountRequest) TableName() string {
	return "account_requests"
}

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

func (r *AccountRequest) IsPending() bool {
	return r.Status == StatusPending
}

func (r *AccountRequest) IsTerminal() bool {
	return r.Status == StatusApproved || r.Status == StatusRejected
}

var (
	ErrNotFound = internal.NewNotFoundError("Account request not found", internal.ErrCodeAccountRequestNotFound)

	// ErrAlreadyDecided: the request was already terminal when the transition
	// was requested.
	ErrAlreadyDecided = internal.NewInvalidStateError("Account request has already been decided", internal.ErrCodeRequestAlreadyDecided)

	// ErrRaceLost: the request was pending when read but another actor's
	// transition landed first.
	ErrRaceLost = internal.NewConflictError("Account request was already processed by another user", internal.ErrCodeRequestRaceLost)

	ErrReasonRequired = internal.NewValidationError("A rejection reason is required", internal.ErrCodeReasonRequired)
)

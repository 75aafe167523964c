package accountrequest

import (
	"strings"

	"github.com/reservehq/reserve-personnel/internal"
)

// SubmitRequestDTO is the public self-registration payload.
type SubmitRequestDTO struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Rank    string `json:"rank"`
	Company string `json:"company"`
}

func (dto SubmitRequestDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name is required", internal.ErrCodeValidationFailed)
	}
	if strings.TrimSpace(dto.Email) == "" {
		return internal.NewValidationFieldError("email", "email is required", internal.ErrCodeValidationFailed)
	}
	if !strings.Contains(dto.Email, "@") {
		return internal.NewValidationFieldError("email", "email is not valid", internal.ErrCodeValidationFailed)
	}
	if strings.TrimSpace(dto.Company) == "" {
		return internal.NewValidationFieldError("company", "company is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

// ReviewDTO is the PATCH /accounts payload deciding a pending request.
type ReviewDTO struct {
	ID              int64  `json:"id"`
	Status          string `json:"status"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}

func (dto ReviewDTO) Validate() error {
	if dto.ID <= 0 {
		return internal.NewValidationFieldError("id", "id is required", internal.ErrCodeValidationFailed)
	}
	if dto.Status != StatusApproved && dto.Status != StatusRejected {
		return internal.NewValidationError("status must be either 'approved' or 'rejected'", internal.ErrCodeInvalidStatus)
	}
	if dto.Status == StatusRejected && strings.TrimSpace(dto.RejectionReason) == "" {
		return ErrReasonRequired
	}
	return nil
}

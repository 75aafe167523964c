package personnel

import (
	"strings"

	"github.com/reservehq/reserve-personnel/internal"
)

// UpdatePersonnelDTO carries a partial edit; nil fields are left untouched.
type UpdatePersonnelDTO struct {
	Name    *string `json:"name,omitempty"`
	Rank    *string `json:"rank,omitempty"`
	Company *string `json:"company,omitempty"`
	Status  *string `json:"status,omitempty"`
}

func (dto UpdatePersonnelDTO) Validate() error {
	if dto.Name != nil && strings.TrimSpace(*dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name must not be empty", internal.ErrCodeValidationFailed)
	}
	if dto.Company != nil && strings.TrimSpace(*dto.Company) == "" {
		return internal.NewValidationFieldError("company", "company must not be empty", internal.ErrCodeValidationFailed)
	}
	return nil
}

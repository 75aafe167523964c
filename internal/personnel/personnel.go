package personnel

import (
	"strings"
	"time"

	"github.com/reservehq/reserve-personnel/internal"
)

// Personnel is one member of the unit's directory, derived from an approved
// account request and maintained by subsequent edits. Records are not hard
// deleted in normal flow; retirement is the preferred exit.
type Personnel struct {
	ID               int64      `json:"id" gorm:"primaryKey"`
	AccountRequestID *int64     `json:"account_request_id,omitempty" gorm:"column:account_request_id"`
	Name             string     `json:"name" gorm:"not null"`
	Email            string     `json:"email" gorm:"uniqueIndex;not null"`
	Rank             string     `json:"rank" gorm:"column:rank"`
	Company          string     `json:"company" gorm:"column:company;index"`
	Status           string     `json:"status" gorm:"column:status;default:standby"`
	JoinedAt         time.Time  `json:"joined_at" gorm:"column:joined_at"`
	RetiredAt        *time.Time `json:"retired_at,omitempty" gorm:"column:retired_at"`
	CreatedAt        time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (Personnel) TableName() string {
	return "personnel"
}

const (
	StatusReady   = "ready"
	StatusStandby = "standby"
	StatusRetired = "retired"
)

// NormalizeStatus maps free-text and legacy status values onto the closed
// set {ready, standby, retired}. It is pure and total: any unrecognized
// input lands on retired, the conservative not-ready default.
func NormalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case StatusReady:
		return StatusReady
	case StatusStandby, "active", "pending":
		return StatusStandby
	case StatusRetired, "inactive", "medical", "leave":
		return StatusRetired
	default:
		return StatusRetired
	}
}

var ErrNotFound = internal.NewNotFoundError("Personnel record not found", internal.ErrCodePersonnelNotFound)

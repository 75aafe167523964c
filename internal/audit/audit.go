package audit

import (
	"time"
)

// Action is the closed set of verbs an audit entry may carry.
type Action string

const (
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionView     Action = "view"
	ActionDownload Action = "download"
	ActionUpload   Action = "upload"
	ActionVerify   Action = "verify"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionLogin    Action = "login"
	ActionLogout   Action = "logout"
	ActionSystem   Action = "system"
)

var knownActions = map[Action]struct{}{
	ActionCreate: {}, ActionUpdate: {}, ActionDelete: {}, ActionView: {},
	ActionDownload: {}, ActionUpload: {}, ActionVerify: {}, ActionApprove: {},
	ActionReject: {}, ActionLogin: {}, ActionLogout: {}, ActionSystem: {},
}

func (a Action) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

// Entry is one immutable audit record. Entries are only ever inserted; the
// administrative purge is the single sanctioned deletion path.
type Entry struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	Timestamp  time.Time `json:"timestamp" gorm:"column:timestamp;index"`
	ActorID    int64     `json:"actor_id" gorm:"column:actor_id"`
	ActorName  string    `json:"actor_name" gorm:"column:actor_name"`
	ActorRole  string    `json:"actor_role" gorm:"column:actor_role"`
	Action     Action    `json:"action" gorm:"column:action;index"`
	Resource   string    `json:"resource" gorm:"column:resource;index"`
	ResourceID string    `json:"resource_id,omitempty" gorm:"column:resource_id"`
	Details    string    `json:"details,omitempty" gorm:"column:details"`
	IPAddress  string    `json:"ip_address,omitempty" gorm:"column:ip_address"`
	UserAgent  string    `json:"user_agent,omitempty" gorm:"column:user_agent"`
}

func (Entry) TableName() string {
	return "audit_logs"
}

// Filter narrows a query; zero values mean "no constraint".
type Filter struct {
	Action     Action
	Resource   string
	SearchTerm string
	StartDate  *time.Time
	EndDate    *time.Time
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type Page struct {
	Logs       []*Entry   `json:"logs"`
	Pagination Pagination `json:"pagination"`
}

package auth

// Role is the privilege tier stored on a user account.
type Role string

const (
	RoleReservist     Role = "reservist"
	RoleStaff         Role = "staff"
	RoleAdministrator Role = "administrator"
	RoleDirector      Role = "director"
)

// RoleHierarchy orders roles from least to most privileged. Each tier's
// permission set contains the tier below it.
var RoleHierarchy = []Role{RoleReservist, RoleStaff, RoleAdministrator, RoleDirector}

func (r Role) Valid() bool {
	switch r {
	case RoleReservist, RoleStaff, RoleAdministrator, RoleDirector:
		return true
	}
	return false
}

// Permission slugs. Atomic yes/no grants; never combined or negated.
const (
	PermViewOwnProfile       = "view_own_profile"
	PermViewCompanyPersonnel = "view_company_personnel"
	PermViewAllPersonnel     = "view_all_personnel"
	PermEditPersonnel        = "edit_personnel"
	PermDeletePersonnel      = "delete_personnel"
	PermApproveReservists    = "approve_reservist_accounts"
	PermViewAuditLogs        = "view_audit_logs"
	PermExportAuditLogs      = "export_audit_logs"
	PermPurgeAuditLogs       = "purge_audit_logs"
	PermViewTrainings        = "view_trainings"
	PermRecordTraining       = "record_training_completion"
	PermManageTrainings      = "manage_trainings"
	PermViewPolicies         = "view_policies"
	PermAcknowledgePolicies  = "acknowledge_policies"
	PermManagePolicies       = "manage_policies"
)

// rolePermissions is the single authoritative role → permission table. It is
// built additively so every tier is a superset of the tier below by
// construction; both the HTTP middleware and the evaluator read from here.
var rolePermissions = buildRolePermissions()

func buildRolePermissions() map[Role][]string {
	reservist := []string{
		PermViewOwnProfile,
		PermViewTrainings,
		PermViewPolicies,
		PermAcknowledgePolicies,
	}

	staff := append(append([]string{}, reservist...),
		PermViewCompanyPersonnel,
		PermRecordTraining,
	)

	administrator := append(append([]string{}, staff...),
		PermViewAllPersonnel,
		PermEditPersonnel,
		PermApproveReservists,
		PermViewAuditLogs,
		PermExportAuditLogs,
		PermManageTrainings,
		PermManagePolicies,
	)

	director := append(append([]string{}, administrator...),
		PermDeletePersonnel,
		PermPurgeAuditLogs,
	)

	return map[Role][]string{
		RoleReservist:     reservist,
		RoleStaff:         staff,
		RoleAdministrator: administrator,
		RoleDirector:      director,
	}
}

// PermissionsForRole returns a copy of the role's permission set. Unknown
// roles get an empty set.
func PermissionsForRole(role Role) []string {
	perms, ok := rolePermissions[role]
	if !ok {
		return []string{}
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// RoleHasPermission answers whether the role's set contains the permission.
// Unknown permissions and unknown roles are simply false, never an error.
func RoleHasPermission(role Role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

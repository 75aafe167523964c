package auth

// Evaluator answers permission checks for one session. It supports a
// simulated role for preview rendering; the simulation is never persisted and
// the HTTP authorization middleware deliberately does not consult it — every
// server-side check re-derives the role from the authenticated session.
type Evaluator struct {
	user       *User
	simulated  Role
	simulating bool
}

func NewEvaluator(user *User) *Evaluator {
	return &Evaluator{user: user}
}

// EffectiveRole returns the simulated role if one is active, else the user's
// stored role. An unauthenticated evaluator has no role.
func (e *Evaluator) EffectiveRole() Role {
	if e == nil {
		return ""
	}
	if e.simulating {
		return e.simulated
	}
	if e.user == nil {
		return ""
	}
	return e.user.Role
}

// HasPermission reports whether the effective role holds the permission.
// It never fails: a nil evaluator, missing user, or unknown permission string
// all evaluate to false.
func (e *Evaluator) HasPermission(permission string) bool {
	role := e.EffectiveRole()
	if role == "" {
		return false
	}
	return RoleHasPermission(role, permission)
}

// SimulateRole overrides the effective role for preview purposes only.
// Invalid roles are ignored.
func (e *Evaluator) SimulateRole(role Role) {
	if e == nil || !role.Valid() {
		return
	}
	e.simulated = role
	e.simulating = true
}

// ClearSimulation restores the user's stored role.
func (e *Evaluator) ClearSimulation() {
	if e == nil {
		return
	}
	e.simulated = ""
	e.simulating = false
}

package rbac

import (
	"github.com/urovital/clinic-api/internal/model"
)

// Evaluator answers authorization questions from the static permission
// table. It is synchronous, never blocks and has no side effects: denial is
// a false return, never an error.
type Evaluator struct {
	table *PermissionTable
}

func NewEvaluator(table *PermissionTable) *Evaluator {
	if table == nil {
		table = DefaultPermissionTable()
	}
	return &Evaluator{table: table}
}

// Can reports whether the actor's role holds the capability. Admin holds
// everything.
func (e *Evaluator) Can(actor *model.Actor, capability model.Capability) bool {
	if actor == nil {
		return false
	}
	if actor.Role == model.RoleAdmin {
		return true
	}
	if e.table.holds(actor.Role, model.CapAdminAll) {
		return true
	}
	return e.table.holds(actor.Role, capability)
}

// CanAccessOwnResource combines the two authorization paths. Staff pass by
// capability. Patients pass only when the resource is their linked record
// and their account is active; both conditions are required.
func (e *Evaluator) CanAccessOwnResource(actor *model.Actor, resourceOwnerID string, capability model.Capability) bool {
	if actor == nil {
		return false
	}

	if actor.Role.IsStaff() {
		return e.Can(actor, capability)
	}

	if actor.Role != model.RolePatient {
		return false
	}
	if !actor.HasLinkedResource() || !actor.IsActive() {
		return false
	}
	return resourceOwnerID != "" && *actor.LinkedResourceID == resourceOwnerID
}

// CapabilitiesFor exposes the table lookup for profile rendering. Admin
// reports the wildcard only.
func (e *Evaluator) CapabilitiesFor(role model.Role) (CapabilitySet, error) {
	return e.table.CapabilitiesFor(role)
}

package rbac

import (
	"fmt"

	"github.com/urovital/clinic-api/internal/model"
)

// CapabilitySet is an immutable view over a role's capabilities.
type CapabilitySet map[model.Capability]struct{}

func (s CapabilitySet) Has(c model.Capability) bool {
	_, ok := s[c]
	return ok
}

// Slice returns the set as a slice, for rendering.
func (s CapabilitySet) Slice() []model.Capability {
	out := make([]model.Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	return out
}

func newSet(caps ...model.Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// PermissionTable maps every role to its capabilities. It is built once and
// never mutated; lookups hand out copies.
type PermissionTable struct {
	roles map[model.Role]CapabilitySet
}

// DefaultPermissionTable is the process-wide table. Admin carries only the
// wildcard; the evaluator short-circuits on it instead of enumerating.
func DefaultPermissionTable() *PermissionTable {
	return &PermissionTable{
		roles: map[model.Role]CapabilitySet{
			model.RoleAdmin: newSet(model.CapAdminAll),
			model.RoleDoctor: newSet(
				model.CapPatientsRead,
				model.CapPatientsWrite,
				model.CapAppointmentsRead,
				model.CapAppointmentsWrite,
				model.CapLabsRead,
				model.CapLabsWrite,
				model.CapAffiliationsRead,
				model.CapNotificationsSend,
			),
			model.RoleSecretary: newSet(
				model.CapPatientsRead,
				model.CapAppointmentsRead,
				model.CapAppointmentsWrite,
				model.CapAffiliationsRead,
				model.CapAffiliationsWrite,
				model.CapFinanceRead,
				model.CapFinanceWrite,
				model.CapNotificationsSend,
			),
			model.RolePromoter: newSet(
				model.CapAffiliationsRead,
				model.CapAffiliationsWrite,
				model.CapFinanceRead,
			),
			// Patients authorize only through ownership.
			model.RolePatient: newSet(),
		},
	}
}

// CapabilitiesFor returns a copy of the role's capabilities.
func (t *PermissionTable) CapabilitiesFor(role model.Role) (CapabilitySet, error) {
	set, ok := t.roles[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownRole, role)
	}

	out := make(CapabilitySet, len(set))
	for c := range set {
		out[c] = struct{}{}
	}
	return out, nil
}

// holds avoids the copy on the hot path.
func (t *PermissionTable) holds(role model.Role, c model.Capability) bool {
	set, ok := t.roles[role]
	if !ok {
		return false
	}
	return set.Has(c)
}

package rbac

import (
	"github.com/urovital/clinic-api/internal/model"
)

// IsRestricted is true for a patient whose account is inactive or who has
// no linked clinical record. Such an actor sees the restricted view on
// every resource, whatever the capability checks say.
//
// The actor must come from a fresh lookup for the current request; status
// can change mid-session.
func IsRestricted(actor *model.Actor) bool {
	if actor == nil || actor.Role != model.RolePatient {
		return false
	}
	return !actor.IsActive() || !actor.HasLinkedResource()
}

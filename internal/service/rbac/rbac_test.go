package rbac

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urovital/clinic-api/internal/model"
)

func strPtr(s string) *string { return &s }

func patient(status model.ActorStatus, linked *string) *model.Actor {
	return &model.Actor{ID: "a-patient", Role: model.RolePatient, Status: status, LinkedResourceID: linked}
}

func TestCapabilitiesForIsTotal(t *testing.T) {
	table := DefaultPermissionTable()
	for _, role := range model.Roles {
		_, err := table.CapabilitiesFor(role)
		assert.NoError(t, err, "role %s", role)
	}

	_, err := table.CapabilitiesFor(model.Role("janitor"))
	assert.ErrorIs(t, err, model.ErrUnknownRole)
}

func TestCapabilitiesForReturnsCopy(t *testing.T) {
	table := DefaultPermissionTable()

	set, err := table.CapabilitiesFor(model.RolePromoter)
	require.NoError(t, err)
	set[model.CapFinanceAdmin] = struct{}{}

	again, err := table.CapabilitiesFor(model.RolePromoter)
	require.NoError(t, err)
	assert.False(t, again.Has(model.CapFinanceAdmin))
}

func TestCanMatchesTable(t *testing.T) {
	table := DefaultPermissionTable()
	e := NewEvaluator(table)

	for _, role := range model.Roles {
		set, err := table.CapabilitiesFor(role)
		require.NoError(t, err)

		for _, c := range model.Capabilities() {
			t.Run(fmt.Sprintf("%s/%s", role, c), func(t *testing.T) {
				actor := &model.Actor{ID: "x", Role: role, Status: model.ActorStatusActive}
				want := role == model.RoleAdmin || set.Has(c)

				got := e.Can(actor, c)
				assert.Equal(t, want, got)
				// deterministic
				assert.Equal(t, got, e.Can(actor, c))
			})
		}
	}
}

func TestAdminCanFinanceAdmin(t *testing.T) {
	e := NewEvaluator(nil)
	admin := &model.Actor{ID: "root", Role: model.RoleAdmin, Status: model.ActorStatusActive}

	set, err := e.CapabilitiesFor(model.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, set.Has(model.CapFinanceAdmin))
	assert.True(t, e.Can(admin, model.CapFinanceAdmin))
}

func TestPatientHoldsNoCapabilities(t *testing.T) {
	e := NewEvaluator(nil)
	p := patient(model.ActorStatusActive, strPtr("p1"))

	for _, c := range model.Capabilities() {
		assert.False(t, e.Can(p, c), "patient must not hold %s", c)
	}
}

func TestCanNilActor(t *testing.T) {
	e := NewEvaluator(nil)
	assert.False(t, e.Can(nil, model.CapPatientsRead))
	assert.False(t, e.CanAccessOwnResource(nil, "p1", model.CapPatientsRead))
}

func TestCanAccessOwnResourcePatient(t *testing.T) {
	e := NewEvaluator(nil)

	tests := []struct {
		name   string
		actor  *model.Actor
		owner  string
		expect bool
	}{
		{"active and linked to owner", patient(model.ActorStatusActive, strPtr("p1")), "p1", true},
		{"linked to another record", patient(model.ActorStatusActive, strPtr("p2")), "p1", false},
		{"inactive", patient(model.ActorStatusInactive, strPtr("p1")), "p1", false},
		{"no link", patient(model.ActorStatusActive, nil), "p1", false},
		{"empty link", patient(model.ActorStatusActive, strPtr("")), "", false},
		{"inactive and no link", patient(model.ActorStatusInactive, nil), "p1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, e.CanAccessOwnResource(tt.actor, tt.owner, model.CapPatientsRead))
		})
	}
}

func TestCanAccessOwnResourceStaff(t *testing.T) {
	e := NewEvaluator(nil)
	doctor := &model.Actor{ID: "d1", Role: model.RoleDoctor, Status: model.ActorStatusActive}
	promoter := &model.Actor{ID: "pr1", Role: model.RolePromoter, Status: model.ActorStatusActive}
	admin := &model.Actor{ID: "root", Role: model.RoleAdmin, Status: model.ActorStatusActive}

	assert.True(t, e.CanAccessOwnResource(doctor, "p1", model.CapLabsRead))
	assert.False(t, e.CanAccessOwnResource(doctor, "p1", model.CapFinanceAdmin))
	assert.False(t, e.CanAccessOwnResource(promoter, "p1", model.CapLabsRead))
	assert.True(t, e.CanAccessOwnResource(admin, "p1", model.CapFinanceAdmin))
}

func TestIsRestricted(t *testing.T) {
	tests := []struct {
		name  string
		actor *model.Actor
		want  bool
	}{
		{"inactive patient with link", patient(model.ActorStatusInactive, strPtr("p1")), true},
		{"active patient without link", patient(model.ActorStatusActive, nil), true},
		{"active linked patient", patient(model.ActorStatusActive, strPtr("p1")), false},
		{"inactive doctor", &model.Actor{Role: model.RoleDoctor, Status: model.ActorStatusInactive}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRestricted(tt.actor))
		})
	}
}

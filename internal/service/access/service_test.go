package access

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urovital/clinic-api/internal/model"
	"github.com/urovital/clinic-api/internal/service/rbac"
	"github.com/urovital/clinic-api/pkg/errors"
	"github.com/urovital/clinic-api/pkg/metrics"
)

func strPtr(s string) *string { return &s }

func newService() (*Service, *metrics.Metrics) {
	m := metrics.NewMetrics("test")
	return NewService(rbac.NewEvaluator(nil), m), m
}

func TestCan(t *testing.T) {
	svc, m := newService()
	admin := &model.Actor{ID: "a", Role: model.RoleAdmin, Status: model.ActorStatusActive}
	promoter := &model.Actor{ID: "p", Role: model.RolePromoter, Status: model.ActorStatusActive}

	ok, err := svc.Can(admin, "finance:admin")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Can(promoter, "finance:write")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Can(admin, "finance:everything")
	assert.True(t, errors.Is(err, errors.ErrBadRequest))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccessDecisions.WithLabelValues("finance:admin", "allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccessDecisions.WithLabelValues("finance:write", "denied")))
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name  string
		actor *model.Actor
		owner string
		want  model.AccessDecision
	}{
		{
			name:  "inactive patient with link is restricted",
			actor: &model.Actor{ID: "1", Role: model.RolePatient, Status: model.ActorStatusInactive, LinkedResourceID: strPtr("P1")},
			owner: "P1",
			want:  model.AccessDecision{View: model.ViewRestricted, Restricted: true},
		},
		{
			name:  "active patient without link is restricted",
			actor: &model.Actor{ID: "1", Role: model.RolePatient, Status: model.ActorStatusActive},
			owner: "P1",
			want:  model.AccessDecision{View: model.ViewRestricted, Restricted: true},
		},
		{
			name:  "active linked patient on own record",
			actor: &model.Actor{ID: "1", Role: model.RolePatient, Status: model.ActorStatusActive, LinkedResourceID: strPtr("P1")},
			owner: "P1",
			want:  model.AccessDecision{View: model.ViewContent, Allowed: true},
		},
		{
			name:  "active linked patient on another record",
			actor: &model.Actor{ID: "1", Role: model.RolePatient, Status: model.ActorStatusActive, LinkedResourceID: strPtr("P1")},
			owner: "P2",
			want:  model.AccessDecision{View: model.ViewDenied},
		},
		{
			name:  "doctor with capability",
			actor: &model.Actor{ID: "d", Role: model.RoleDoctor, Status: model.ActorStatusActive},
			owner: "P2",
			want:  model.AccessDecision{View: model.ViewContent, Allowed: true},
		},
		{
			name:  "promoter without capability",
			actor: &model.Actor{ID: "pr", Role: model.RolePromoter, Status: model.ActorStatusActive},
			owner: "P2",
			want:  model.AccessDecision{View: model.ViewDenied},
		},
		{
			name:  "inactive staff is not gated",
			actor: &model.Actor{ID: "d", Role: model.RoleDoctor, Status: model.ActorStatusInactive},
			owner: "P2",
			want:  model.AccessDecision{View: model.ViewContent, Allowed: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService()
			got, err := svc.Decide(tt.actor, tt.owner, string(model.CapLabsRead))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecideUnknownCapability(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Decide(&model.Actor{Role: model.RoleAdmin}, "P1", "labs:delete")
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestProfile(t *testing.T) {
	svc, _ := newService()

	promoter := &model.Actor{ID: "pr", Role: model.RolePromoter, Status: model.ActorStatusActive}
	p, err := svc.Profile(promoter)
	require.NoError(t, err)
	assert.False(t, p.Restricted)
	assert.Equal(t, []model.Capability{
		model.CapAffiliationsRead,
		model.CapAffiliationsWrite,
		model.CapFinanceRead,
	}, p.Capabilities)

	patient := &model.Actor{ID: "pa", Role: model.RolePatient, Status: model.ActorStatusInactive}
	p, err = svc.Profile(patient)
	require.NoError(t, err)
	assert.True(t, p.Restricted)
	assert.Empty(t, p.Capabilities)

	_, err = svc.Profile(nil)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}

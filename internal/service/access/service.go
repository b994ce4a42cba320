package access

import (
	"sort"

	"github.com/urovital/clinic-api/internal/model"
	"github.com/urovital/clinic-api/internal/service/rbac"
	"github.com/urovital/clinic-api/pkg/errors"
	"github.com/urovital/clinic-api/pkg/metrics"
)

const (
	outcomeAllowed    = "allowed"
	outcomeDenied     = "denied"
	outcomeRestricted = "restricted"
)

// Service turns evaluator answers into request level decisions and
// counts them.
type Service struct {
	evaluator *rbac.Evaluator
	metrics   *metrics.Metrics
}

func NewService(evaluator *rbac.Evaluator, m *metrics.Metrics) *Service {
	return &Service{evaluator: evaluator, metrics: m}
}

func parseCapability(raw string) (model.Capability, error) {
	c, err := model.ParseCapability(raw)
	if err != nil {
		return "", errors.InvalidArgument("unknown capability", err)
	}
	return c, nil
}

func (s *Service) Can(actor *model.Actor, rawCapability string) (bool, error) {
	c, err := parseCapability(rawCapability)
	if err != nil {
		return false, err
	}

	allowed := s.evaluator.Can(actor, c)
	s.observe(c, allowed)
	return allowed, nil
}

// Decide picks the view for a resource owned by resourceOwnerID. The
// status gate runs first: a restricted patient gets the restricted view
// whatever the other checks say.
func (s *Service) Decide(actor *model.Actor, resourceOwnerID, rawCapability string) (model.AccessDecision, error) {
	c, err := parseCapability(rawCapability)
	if err != nil {
		return model.AccessDecision{}, err
	}

	if rbac.IsRestricted(actor) {
		s.metrics.ObserveAccess(string(c), outcomeRestricted)
		return model.AccessDecision{View: model.ViewRestricted, Restricted: true}, nil
	}

	allowed := s.evaluator.CanAccessOwnResource(actor, resourceOwnerID, c)
	s.observe(c, allowed)
	if !allowed {
		return model.AccessDecision{View: model.ViewDenied}, nil
	}
	return model.AccessDecision{View: model.ViewContent, Allowed: true}, nil
}

// Profile is the caller's own view of its role.
func (s *Service) Profile(actor *model.Actor) (*model.ActorProfile, error) {
	if actor == nil {
		return nil, errors.Unauthorized(nil)
	}

	set, err := s.evaluator.CapabilitiesFor(actor.Role)
	if err != nil {
		return nil, errors.Internal(err)
	}
	caps := set.Slice()
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })

	return &model.ActorProfile{
		Actor:        actor,
		Restricted:   rbac.IsRestricted(actor),
		Capabilities: caps,
	}, nil
}

func (s *Service) observe(c model.Capability, allowed bool) {
	outcome := outcomeDenied
	if allowed {
		outcome = outcomeAllowed
	}
	s.metrics.ObserveAccess(string(c), outcome)
}

package actor

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/urovital/clinic-api/internal/model"
	"github.com/urovital/clinic-api/internal/repository"
	"github.com/urovital/clinic-api/internal/service/audit"
	"github.com/urovital/clinic-api/internal/service/rbac"
	"github.com/urovital/clinic-api/pkg/cache"
	"github.com/urovital/clinic-api/pkg/errors"
)

// Service owns the actor lifecycle after registration. Authorization
// never reads through the directory cache; Get always hits the store.
type Service struct {
	repo      repository.ActorRepository
	evaluator *rbac.Evaluator
	directory *cache.TTLCache[[]*model.Actor]
	auditor   *audit.Service
	now       func() time.Time
}

func NewService(repo repository.ActorRepository, evaluator *rbac.Evaluator,
	directory *cache.TTLCache[[]*model.Actor], auditor *audit.Service) *Service {
	return &Service{
		repo:      repo,
		evaluator: evaluator,
		directory: directory,
		auditor:   auditor,
		now:       time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id string) (*model.Actor, error) {
	actor, err := s.repo.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("actor", err)
		}
		return nil, errors.Internal(err)
	}
	return actor, nil
}

func (s *Service) Activate(ctx context.Context, admin *model.Actor, id string) (*model.Actor, error) {
	return s.mutate(ctx, admin, id, "actor.activate", func(a *model.Actor) error {
		a.Status = model.ActorStatusActive
		return nil
	})
}

// Deactivate is the soft delete: the actor stays, but a deactivated
// patient is restricted on the next request.
func (s *Service) Deactivate(ctx context.Context, admin *model.Actor, id string) (*model.Actor, error) {
	return s.mutate(ctx, admin, id, "actor.deactivate", func(a *model.Actor) error {
		a.Status = model.ActorStatusInactive
		return nil
	})
}

func (s *Service) ChangeRole(ctx context.Context, admin *model.Actor, id, rawRole string) (*model.Actor, error) {
	role, err := model.ParseRole(rawRole)
	if err != nil {
		return nil, errors.InvalidArgument("unknown role", err)
	}
	return s.mutate(ctx, admin, id, "actor.change_role", func(a *model.Actor) error {
		a.Role = role
		return nil
	})
}

func (s *Service) LinkResource(ctx context.Context, admin *model.Actor, id, resourceID string) (*model.Actor, error) {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		return nil, errors.InvalidArgument("resource id is required", nil)
	}
	return s.mutate(ctx, admin, id, "actor.link_resource", func(a *model.Actor) error {
		a.LinkedResourceID = &resourceID
		return nil
	})
}

func (s *Service) UnlinkResource(ctx context.Context, admin *model.Actor, id string) (*model.Actor, error) {
	return s.mutate(ctx, admin, id, "actor.unlink_resource", func(a *model.Actor) error {
		a.LinkedResourceID = nil
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, admin *model.Actor, id, action string, apply func(*model.Actor) error) (*model.Actor, error) {
	if !s.evaluator.Can(admin, model.CapUsersAdmin) {
		return nil, errors.Forbidden("users:admin required")
	}

	actor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(actor); err != nil {
		return nil, err
	}
	actor.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, actor); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("actor", err)
		}
		return nil, errors.Internal(err)
	}
	s.directory.Invalidate()

	s.auditor.Log(ctx, admin.ID, action, "actor", actor.ID, map[string]interface{}{
		"role":   string(actor.Role),
		"status": string(actor.Status),
	})
	return actor, nil
}

// ListDirectory serves the staff directory from the TTL cache. Staff only.
func (s *Service) ListDirectory(ctx context.Context, caller *model.Actor, filter model.ActorFilter) ([]*model.Actor, error) {
	if caller == nil || !caller.Role.IsStaff() {
		return nil, errors.Forbidden("staff only")
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, errors.InvalidArgument("unknown role", model.ErrUnknownRole)
	}
	if filter.Status != "" {
		if _, err := model.ParseActorStatus(string(filter.Status)); err != nil {
			return nil, errors.InvalidArgument("unknown status", err)
		}
	}

	actors, err := s.directory.GetOrRefresh(ctx, filter.CacheKey(), func(ctx context.Context) ([]*model.Actor, error) {
		return s.repo.List(ctx, filter)
	})
	if err != nil {
		return nil, errors.Internal(err)
	}

	out := make([]*model.Actor, len(actors))
	for i, a := range actors {
		cp := *a
		out[i] = &cp
	}
	return out, nil
}

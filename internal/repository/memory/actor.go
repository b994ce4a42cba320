package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/urovital/clinic-api/internal/model"
	"github.com/urovital/clinic-api/internal/repository"
)

type actorRepository struct {
	mu      sync.RWMutex
	byID    map[string]model.Actor
	byEmail map[string]string
	creds   map[string]model.Credential
}

func NewActorRepository() repository.ActorRepository {
	return &actorRepository{
		byID:    make(map[string]model.Actor),
		byEmail: make(map[string]string),
		creds:   make(map[string]model.Credential),
	}
}

func (r *actorRepository) Create(ctx context.Context, actor *model.Actor, cred *model.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(actor.Email)
	if _, exists := r.byID[actor.ID]; exists {
		return repository.ErrDuplicate
	}
	if _, exists := r.byEmail[email]; exists {
		return repository.ErrDuplicate
	}

	r.byID[actor.ID] = cloneActor(*actor)
	r.byEmail[email] = actor.ID
	if cred != nil {
		r.creds[actor.ID] = *cred
	}
	return nil
}

func (r *actorRepository) Get(ctx context.Context, id string) (*model.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneActor(a)
	return &out, nil
}

func (r *actorRepository) GetByEmail(ctx context.Context, email string) (*model.Actor, error) {
	r.mu.RLock()
	id, ok := r.byEmail[strings.ToLower(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *actorRepository) GetCredential(ctx context.Context, actorID string) (*model.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.creds[actorID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *actorRepository) Update(ctx context.Context, actor *model.Actor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[actor.ID]
	if !ok {
		return repository.ErrNotFound
	}
	updated := cloneActor(*actor)
	updated.Email = existing.Email
	updated.CreatedAt = existing.CreatedAt
	r.byID[actor.ID] = updated
	return nil
}

func (r *actorRepository) List(ctx context.Context, filter model.ActorFilter) ([]*model.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Actor, 0)
	for _, a := range r.byID {
		if filter.Role != "" && a.Role != filter.Role {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		c := cloneActor(a)
		out = append(out, &c)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *actorRepository) Ping(ctx context.Context) error {
	return nil
}

func cloneActor(a model.Actor) model.Actor {
	if a.LinkedResourceID != nil {
		v := *a.LinkedResourceID
		a.LinkedResourceID = &v
	}
	return a
}

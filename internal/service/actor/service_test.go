package actor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urovital/clinic-api/internal/model"
	"github.com/urovital/clinic-api/internal/repository"
	"github.com/urovital/clinic-api/internal/repository/memory"
	"github.com/urovital/clinic-api/internal/service/audit"
	"github.com/urovital/clinic-api/internal/service/rbac"
	"github.com/urovital/clinic-api/pkg/cache"
	"github.com/urovital/clinic-api/pkg/errors"
)

var (
	admin     = &model.Actor{ID: "admin-1", Role: model.RoleAdmin, Status: model.ActorStatusActive}
	secretary = &model.Actor{ID: "sec-1", Role: model.RoleSecretary, Status: model.ActorStatusActive}
)

func newService(t *testing.T) (*Service, repository.ActorRepository) {
	t.Helper()
	repo := memory.NewActorRepository()
	svc := NewService(
		repo,
		rbac.NewEvaluator(nil),
		cache.NewTTLCache[[]*model.Actor](time.Minute, time.Minute),
		audit.NewService(zerolog.Nop()),
	)
	return svc, repo
}

func seedActor(t *testing.T, repo repository.ActorRepository, id string, role model.Role) {
	t.Helper()
	now := time.Now()
	require.NoError(t, repo.Create(context.Background(), &model.Actor{
		ID:        id,
		Email:     id + "@urovital.test",
		Name:      id,
		Role:      role,
		Status:    model.ActorStatusInactive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil))
}

func TestPatientOnboarding(t *testing.T) {
	svc, repo := newService(t)
	seedActor(t, repo, "p1", model.RolePatient)
	ctx := context.Background()

	p, err := svc.Get(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, rbac.IsRestricted(p))

	p, err = svc.Activate(ctx, admin, "p1")
	require.NoError(t, err)
	assert.True(t, rbac.IsRestricted(p), "active but unlinked is still restricted")

	p, err = svc.LinkResource(ctx, admin, "p1", "record-1")
	require.NoError(t, err)
	assert.False(t, rbac.IsRestricted(p))

	p, err = svc.Deactivate(ctx, admin, "p1")
	require.NoError(t, err)
	assert.True(t, rbac.IsRestricted(p))

	_, err = svc.Activate(ctx, admin, "p1")
	require.NoError(t, err)
	p, err = svc.UnlinkResource(ctx, admin, "p1")
	require.NoError(t, err)
	assert.True(t, rbac.IsRestricted(p))
}

func TestMutationsRequireUsersAdmin(t *testing.T) {
	svc, repo := newService(t)
	seedActor(t, repo, "p1", model.RolePatient)
	ctx := context.Background()

	_, err := svc.Activate(ctx, secretary, "p1")
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	_, err = svc.LinkResource(ctx, nil, "p1", "record-1")
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	got, err := svc.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, model.ActorStatusInactive, got.Status)
	assert.False(t, got.HasLinkedResource())
}

func TestChangeRoleNormalizes(t *testing.T) {
	svc, repo := newService(t)
	seedActor(t, repo, "u1", model.RolePatient)

	got, err := svc.ChangeRole(context.Background(), admin, "u1", " DOCTOR ")
	require.NoError(t, err)
	assert.Equal(t, model.RoleDoctor, got.Role)

	_, err = svc.ChangeRole(context.Background(), admin, "u1", "root")
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestMutationOnMissingActor(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Activate(context.Background(), admin, "ghost")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = svc.LinkResource(context.Background(), admin, "ghost", " ")
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestListDirectoryCachesAndInvalidates(t *testing.T) {
	svc, repo := newService(t)
	seedActor(t, repo, "d1", model.RoleDoctor)
	ctx := context.Background()
	filter := model.ActorFilter{Role: model.RoleDoctor}

	list, err := svc.ListDirectory(ctx, secretary, filter)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// written behind the service's back: the cache still answers
	seedActor(t, repo, "d2", model.RoleDoctor)
	list, err = svc.ListDirectory(ctx, secretary, filter)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// any admin mutation drops the cache
	_, err = svc.Activate(ctx, admin, "d1")
	require.NoError(t, err)
	list, err = svc.ListDirectory(ctx, secretary, filter)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

// blockingListRepo parks the first List call until release is closed.
type blockingListRepo struct {
	repository.ActorRepository
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (r *blockingListRepo) List(ctx context.Context, filter model.ActorFilter) ([]*model.Actor, error) {
	actors, err := r.ActorRepository.List(ctx, filter)
	r.once.Do(func() {
		close(r.started)
		<-r.release
	})
	return actors, err
}

func TestListDirectorySeesMutationDuringRefresh(t *testing.T) {
	base := memory.NewActorRepository()
	seedActor(t, base, "p1", model.RolePatient)
	repo := &blockingListRepo{
		ActorRepository: base,
		started:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	svc := NewService(
		repo,
		rbac.NewEvaluator(nil),
		cache.NewTTLCache[[]*model.Actor](time.Minute, time.Minute),
		audit.NewService(zerolog.Nop()),
	)
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() {
		_, err := svc.ListDirectory(ctx, admin, model.ActorFilter{})
		errc <- err
	}()

	<-repo.started
	_, err := svc.Activate(ctx, admin, "p1")
	require.NoError(t, err)
	close(repo.release)
	require.NoError(t, <-errc)

	list, err := svc.ListDirectory(ctx, admin, model.ActorFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.ActorStatusActive, list[0].Status)
}

func TestListDirectoryReturnsCopies(t *testing.T) {
	svc, repo := newService(t)
	seedActor(t, repo, "d1", model.RoleDoctor)
	ctx := context.Background()

	list, err := svc.ListDirectory(ctx, admin, model.ActorFilter{})
	require.NoError(t, err)
	list[0].Name = "mutated"

	list, err = svc.ListDirectory(ctx, admin, model.ActorFilter{})
	require.NoError(t, err)
	assert.Equal(t, "d1", list[0].Name)
}

func TestListDirectoryStaffOnly(t *testing.T) {
	svc, _ := newService(t)
	patient := &model.Actor{ID: "p", Role: model.RolePatient, Status: model.ActorStatusActive}

	_, err := svc.ListDirectory(context.Background(), patient, model.ActorFilter{})
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	_, err = svc.ListDirectory(context.Background(), secretary, model.ActorFilter{Role: "root"})
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

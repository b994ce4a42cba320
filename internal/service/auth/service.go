package auth

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/urovital/clinic-api/internal/model"
	"github.com/urovital/clinic-api/internal/repository"
	"github.com/urovital/clinic-api/internal/service/audit"
	"github.com/urovital/clinic-api/internal/service/rbac"
	"github.com/urovital/clinic-api/pkg/auth"
	"github.com/urovital/clinic-api/pkg/errors"
	"github.com/urovital/clinic-api/pkg/logger"
	"github.com/urovital/clinic-api/pkg/security"
)

var ErrInvalidCredentials = stderrors.New("invalid credentials")

type Service struct {
	actors    repository.ActorRepository
	hasher    security.PasswordHasher
	jwtSvc    auth.JWTService
	evaluator *rbac.Evaluator
	auditor   *audit.Service
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(actors repository.ActorRepository, hasher security.PasswordHasher, jwtSvc auth.JWTService,
	evaluator *rbac.Evaluator, auditor *audit.Service, log *logger.Logger) *Service {
	return &Service{
		actors:    actors,
		hasher:    hasher,
		jwtSvc:    jwtSvc,
		evaluator: evaluator,
		auditor:   auditor,
		logger:    log,
		now:       time.Now,
	}
}

// Register creates an inactive actor with no linked record. Anyone may
// register a patient; any other role needs a registrar holding users:admin.
func (s *Service) Register(ctx context.Context, registrar *model.Actor, req model.RegisterRequest) (*model.Actor, error) {
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return nil, errors.InvalidArgument("unknown role", err)
	}
	if role != model.RolePatient && !s.evaluator.Can(registrar, model.CapUsersAdmin) {
		return nil, errors.Forbidden("only administrators can register staff")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		switch {
		case stderrors.Is(err, security.ErrPasswordTooShort):
			return nil, errors.InvalidArgument("password too short", err)
		case stderrors.Is(err, security.ErrPasswordTooLong):
			return nil, errors.InvalidArgument("password too long", err)
		}
		return nil, errors.Internal(err)
	}

	now := s.now().UTC()
	actor := &model.Actor{
		ID:        uuid.NewString(),
		Email:     strings.TrimSpace(req.Email),
		Name:      strings.TrimSpace(req.Name),
		Role:      role,
		Status:    model.ActorStatusInactive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cred := &model.Credential{
		ActorID:      actor.ID,
		PasswordHash: hash,
		UpdatedAt:    now,
	}

	if err := s.actors.Create(ctx, actor, cred); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Conflict("email already registered")
		}
		return nil, errors.Internal(err)
	}

	registrarID := actor.ID
	if registrar != nil {
		registrarID = registrar.ID
	}
	s.auditor.Log(ctx, registrarID, "actor.register", "actor", actor.ID, map[string]interface{}{
		"role": string(role),
	})
	return actor, nil
}

// EnsureAdmin creates an active administrator when no actor holds the
// e-mail yet. It is how a fresh deployment gets its first admin; the
// credentials come from the environment, never from code.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return false, errors.InvalidArgument("admin e-mail and password are required", nil)
	}

	if _, err := s.actors.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !stderrors.Is(err, repository.ErrNotFound) {
		return false, errors.Internal(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		switch {
		case stderrors.Is(err, security.ErrPasswordTooShort):
			return false, errors.InvalidArgument("password too short", err)
		case stderrors.Is(err, security.ErrPasswordTooLong):
			return false, errors.InvalidArgument("password too long", err)
		}
		return false, errors.Internal(err)
	}

	if name = strings.TrimSpace(name); name == "" {
		name = "Administrator"
	}
	now := s.now().UTC()
	admin := &model.Actor{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Role:      model.RoleAdmin,
		Status:    model.ActorStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.actors.Create(ctx, admin, &model.Credential{ActorID: admin.ID, PasswordHash: hash, UpdatedAt: now}); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, errors.Internal(err)
	}

	s.auditor.Log(ctx, admin.ID, "actor.bootstrap_admin", "actor", admin.ID, nil)
	return true, nil
}

// Login is the only credential check in the service. Unknown e-mail and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req model.LoginRequest) (*model.TokenResponse, error) {
	actor, err := s.actors.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if !stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.Internal(err)
		}
		s.hasher.CompareDummy(req.Password)
		return nil, s.loginFailed(ctx, "")
	}

	cred, err := s.actors.GetCredential(ctx, actor.ID)
	if err != nil {
		if !stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.Internal(err)
		}
		s.hasher.CompareDummy(req.Password)
		return nil, s.loginFailed(ctx, actor.ID)
	}

	if err := s.hasher.Compare(cred.PasswordHash, req.Password); err != nil {
		return nil, s.loginFailed(ctx, actor.ID)
	}

	token, expiresAt, err := s.jwtSvc.GenerateAccessToken(actor.ID)
	if err != nil {
		return nil, errors.Internal(err)
	}

	s.auditor.Log(ctx, actor.ID, "auth.login", "actor", actor.ID, nil)
	return &model.TokenResponse{AccessToken: token, ExpiresAt: expiresAt}, nil
}

func (s *Service) loginFailed(ctx context.Context, actorID string) error {
	s.auditor.Log(ctx, actorID, "auth.login_failed", "actor", actorID, nil)
	return errors.Unauthorized(ErrInvalidCredentials)
}

// Authenticate resolves a bearer token to the actor as stored right now.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Actor, error) {
	actorID, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, errors.Unauthorized(err)
	}

	actor, err := s.actors.Get(ctx, actorID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.Unauthorized(err)
		}
		s.logger.Error(err, "failed to load actor for token", "actor_id", actorID)
		return nil, errors.Internal(err)
	}
	return actor, nil
}

package middleware

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/urovital/clinic-api/internal/model"
	"github.com/urovital/clinic-api/internal/service/rbac"
	"github.com/urovital/clinic-api/pkg/errors"
	"github.com/urovital/clinic-api/pkg/httputil"
)

const ContextActor = "actor"

var errMissingToken = stderrors.New("missing bearer token")

// Authenticator resolves a bearer token to the actor as currently stored.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Actor, error)
}

type AuthMiddleware struct {
	auth      Authenticator
	evaluator *rbac.Evaluator
}

func NewAuthMiddleware(auth Authenticator, evaluator *rbac.Evaluator) *AuthMiddleware {
	return &AuthMiddleware{
		auth:      auth,
		evaluator: evaluator,
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// Authenticate verifies the token and loads the actor fresh for this
// request; status and role changes apply without re-login.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			httputil.RespondWithError(c, errors.Unauthorized(errMissingToken))
			return
		}

		actor, err := m.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		c.Set(ContextActor, actor)
		c.Next()
	}
}

// OptionalAuthenticate resolves the actor when a token is present. A
// present but invalid token is still rejected.
func (m *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		m.Authenticate()(c)
	}
}

// RequireCapability must run after Authenticate.
func (m *AuthMiddleware) RequireCapability(capability model.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			httputil.RespondWithError(c, errors.Unauthorized(errMissingToken))
			return
		}
		if !m.evaluator.Can(actor, capability) {
			httputil.RespondWithError(c, errors.Forbidden(string(capability)+" required"))
			return
		}
		c.Next()
	}
}

// CurrentActor returns the actor set by Authenticate.
func CurrentActor(c *gin.Context) (*model.Actor, bool) {
	v, ok := c.Get(ContextActor)
	if !ok {
		return nil, false
	}
	actor, ok := v.(*model.Actor)
	return actor, ok && actor != nil
}

// ActorOrAbort returns the authenticated actor, or responds 401 when the
// route was mounted without Authenticate.
func ActorOrAbort(c *gin.Context) (*model.Actor, bool) {
	actor, ok := CurrentActor(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(errMissingToken))
		return nil, false
	}
	return actor, true
}

package actor

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/urovital/clinic-api/internal/middleware"
	"github.com/urovital/clinic-api/internal/model"
	"github.com/urovital/clinic-api/internal/service/actor"
	"github.com/urovital/clinic-api/internal/service/auth"
	"github.com/urovital/clinic-api/pkg/httputil"
)

type Handler struct {
	svc  *actor.Service
	auth *auth.Service
}

func NewHandler(svc *actor.Service, authSvc *auth.Service) *Handler {
	return &Handler{svc: svc, auth: authSvc}
}

// RegisterRoutes mounts the actor administration routes on the admin
// group. The services enforce users:admin; the directory is staff-wide.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	actors := r.Group("/actors")
	{
		actors.POST("", h.Create)
		actors.GET("", h.List)
		actors.PATCH("/:id/activate", h.Activate)
		actors.PATCH("/:id/deactivate", h.Deactivate)
		actors.PATCH("/:id/role", h.ChangeRole)
		actors.PATCH("/:id/link", h.LinkResource)
		actors.PATCH("/:id/unlink", h.UnlinkResource)
	}
}

// Create registers an actor of any role on behalf of an administrator.
func (h *Handler) Create(c *gin.Context) {
	admin, ok := middleware.ActorOrAbort(c)
	if !ok {
		return
	}

	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	created, err := h.auth.Register(c.Request.Context(), admin, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, created)
}

func (h *Handler) List(c *gin.Context) {
	caller, ok := middleware.ActorOrAbort(c)
	if !ok {
		return
	}

	var filter model.ActorFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	actors, err := h.svc.ListDirectory(c.Request.Context(), caller, filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, actors)
}

type mutation func(ctx context.Context, admin *model.Actor, id string) (*model.Actor, error)

// apply runs a mutation against the :id actor and renders the result.
func (h *Handler) apply(c *gin.Context, fn mutation) {
	admin, ok := middleware.ActorOrAbort(c)
	if !ok {
		return
	}

	updated, err := fn(c.Request.Context(), admin, c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, updated)
}

func (h *Handler) Activate(c *gin.Context) {
	h.apply(c, h.svc.Activate)
}

func (h *Handler) Deactivate(c *gin.Context) {
	h.apply(c, h.svc.Deactivate)
}

func (h *Handler) UnlinkResource(c *gin.Context) {
	h.apply(c, h.svc.UnlinkResource)
}

func (h *Handler) ChangeRole(c *gin.Context) {
	var req model.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	h.apply(c, func(ctx context.Context, admin *model.Actor, id string) (*model.Actor, error) {
		return h.svc.ChangeRole(ctx, admin, id, req.Role)
	})
}

func (h *Handler) LinkResource(c *gin.Context) {
	var req model.LinkResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	h.apply(c, func(ctx context.Context, admin *model.Actor, id string) (*model.Actor, error) {
		return h.svc.LinkResource(ctx, admin, id, req.ResourceID)
	})
}

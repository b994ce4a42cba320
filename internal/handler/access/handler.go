package access

import (
	"github.com/gin-gonic/gin"

	"github.com/urovital/clinic-api/internal/middleware"
	"github.com/urovital/clinic-api/internal/service/access"
	"github.com/urovital/clinic-api/pkg/httputil"
)

type Handler struct {
	svc *access.Service
}

func NewHandler(svc *access.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes expects r to be behind Authenticate.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	access := r.Group("/access")
	{
		access.GET("/can", h.Can)
		access.GET("/resources/:ownerId", h.Decide)
		access.GET("/me", h.Me)
	}
}

type capabilityQuery struct {
	Capability string `form:"capability" json:"capability" binding:"required,capability"`
}

func (h *Handler) Can(c *gin.Context) {
	actor, ok := middleware.ActorOrAbort(c)
	if !ok {
		return
	}

	var q capabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	allowed, err := h.svc.Can(actor, q.Capability)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"allowed": allowed})
}

func (h *Handler) Decide(c *gin.Context) {
	actor, ok := middleware.ActorOrAbort(c)
	if !ok {
		return
	}

	var q capabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	decision, err := h.svc.Decide(actor, c.Param("ownerId"), q.Capability)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, decision)
}

func (h *Handler) Me(c *gin.Context) {
	actor, ok := middleware.ActorOrAbort(c)
	if !ok {
		return
	}

	profile, err := h.svc.Profile(actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, profile)
}

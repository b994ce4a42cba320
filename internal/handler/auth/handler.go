package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/urovital/clinic-api/internal/middleware"
	"github.com/urovital/clinic-api/internal/model"
	"github.com/urovital/clinic-api/internal/service/auth"
	"github.com/urovital/clinic-api/pkg/httputil"
)

type Handler struct {
	svc  *auth.Service
	auth *middleware.AuthMiddleware
}

func NewHandler(svc *auth.Service, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{svc: svc, auth: authMiddleware}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.auth.OptionalAuthenticate(), h.Register)
		auth.POST("/login", h.Login)
	}
}

// Register is open for patients. A staff role needs a caller holding
// users:admin, which the service checks.
func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	registrar, _ := middleware.CurrentActor(c)
	actor, err := h.svc.Register(c.Request.Context(), registrar, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, actor)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	tokens, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, tokens)
}

package notification

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/urovital/clinic-api/internal/middleware"
	"github.com/urovital/clinic-api/internal/model"
	"github.com/urovital/clinic-api/internal/service/notification"
	"github.com/urovital/clinic-api/pkg/errors"
	"github.com/urovital/clinic-api/pkg/httputil"
)

type Handler struct {
	svc  *notification.Service
	auth *middleware.AuthMiddleware
}

func NewHandler(svc *notification.Service, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{svc: svc, auth: authMiddleware}
}

// RegisterRoutes mounts the owner-scoped routes. r must be behind
// Authenticate; every operation acts on the caller's notifications only.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.List)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.GET("/:id", h.Get)
		notifications.PATCH("/read-all", h.MarkAllRead)
		notifications.PATCH("/:id/read", h.MarkRead)
		notifications.DELETE("/:id", h.Delete)
	}
}

// RegisterAdminRoutes mounts the producer route under the admin group.
// Callers without notifications:send are turned away before the body is read.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/notifications", h.auth.RequireCapability(model.CapNotificationsSend), h.Create)
}

type listQuery struct {
	model.NotificationFilter
	Cursor string `form:"cursor"`
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := middleware.ActorOrAbort(c)
	if !ok {
		return
	}

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}
	if q.Cursor != "" {
		offset, err := strconv.Atoi(q.Cursor)
		if err != nil {
			httputil.RespondWithError(c, errors.InvalidArgument("invalid cursor", err))
			return
		}
		q.Offset = offset
	}

	page, err := h.svc.List(c.Request.Context(), actor, q.NotificationFilter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, page)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	actor, ok := middleware.ActorOrAbort(c)
	if !ok {
		return
	}

	count, err := h.svc.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"unread_count": count})
}

func (h *Handler) Get(c *gin.Context) {
	actor, ok := middleware.ActorOrAbort(c)
	if !ok {
		return
	}

	n, err := h.svc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, n)
}

func (h *Handler) MarkRead(c *gin.Context) {
	actor, ok := middleware.ActorOrAbort(c)
	if !ok {
		return
	}

	n, err := h.svc.MarkRead(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, n)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	actor, ok := middleware.ActorOrAbort(c)
	if !ok {
		return
	}

	count, err := h.svc.MarkAllRead(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"updated_count": count})
}

func (h *Handler) Delete(c *gin.Context) {
	actor, ok := middleware.ActorOrAbort(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if err := h.svc.Delete(c.Request.Context(), actor, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"deleted_id": id})
}

func (h *Handler) Create(c *gin.Context) {
	sender, ok := middleware.ActorOrAbort(c)
	if !ok {
		return
	}

	var req model.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	n, err := h.svc.Create(c.Request.Context(), sender, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, n)
}

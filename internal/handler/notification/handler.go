package notification

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/notify-api/internal/handler"
	"github.com/jwalitptl/notify-api/internal/model"
	notificationService "github.com/jwalitptl/notify-api/internal/service/notification"
)

type Handler struct {
	service notificationService.Service
}

func NewHandler(service notificationService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.POST("", h.CreateNotification)
		notifications.GET("/pending", h.ListPending)
		notifications.GET("/:id", h.GetNotification)
		notifications.DELETE("/:id", h.DeleteNotification)
		notifications.POST("/:id/cancel", h.CancelNotification)
		notifications.POST("/:id/reschedule", h.RescheduleNotification)
	}
	r.GET("/users/:id/notifications", h.ListByRecipient)
}

func (h *Handler) CreateNotification(c *gin.Context) {
	var req model.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err)
		return
	}

	resp := h.service.Create(c.Request.Context(), &req)
	handler.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) GetNotification(c *gin.Context) {
	resp := h.service.Get(c.Request.Context(), c.Param("id"))
	handler.JSON(c, http.StatusOK, resp)
}

func (h *Handler) CancelNotification(c *gin.Context) {
	resp := h.service.Cancel(c.Request.Context(), c.Param("id"))
	handler.JSON(c, http.StatusOK, resp)
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	resp := h.service.Delete(c.Request.Context(), c.Param("id"))
	handler.JSON(c, http.StatusOK, resp)
}

func (h *Handler) RescheduleNotification(c *gin.Context) {
	var req model.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err)
		return
	}

	resp := h.service.Reschedule(c.Request.Context(), c.Param("id"), &req)
	handler.JSON(c, http.StatusOK, resp)
}

func (h *Handler) ListPending(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("Invalid request body", "limit must be a positive integer"))
		return
	}

	resp := h.service.ListPending(c.Request.Context(), limit)
	handler.JSON(c, http.StatusOK, resp)
}

func (h *Handler) ListByRecipient(c *gin.Context) {
	resp := h.service.ListByRecipient(c.Request.Context(), c.Param("id"))
	handler.JSON(c, http.StatusOK, resp)
}

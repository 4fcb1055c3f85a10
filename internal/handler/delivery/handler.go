package delivery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/notify-api/internal/handler"
	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/service/dispatch"
	apperrors "github.com/jwalitptl/notify-api/pkg/errors"
)

type Handler struct {
	dispatcher *dispatch.Service
}

func NewHandler(dispatcher *dispatch.Service) *Handler {
	return &Handler{dispatcher: dispatcher}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/send", h.Send)
	r.POST("/send/bulk", h.SendBulk)

	deliveries := r.Group("/deliveries")
	{
		deliveries.GET("/stats", h.Stats)
		deliveries.GET("/:id", h.GetDelivery)
		deliveries.POST("/:id/retry", h.RetryDelivery)
		deliveries.POST("/:id/cancel", h.CancelDelivery)
	}
	r.GET("/notifications/:id/deliveries", h.ListDeliveries)
}

func (h *Handler) Send(c *gin.Context) {
	var req model.SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err)
		return
	}

	resp := h.dispatcher.Send(c.Request.Context(), &req)
	handler.JSON(c, http.StatusOK, resp)
}

func (h *Handler) SendBulk(c *gin.Context) {
	var req model.BulkNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err)
		return
	}

	resp := h.dispatcher.SendBulk(c.Request.Context(), &req)
	handler.JSON(c, http.StatusOK, resp)
}

func (h *Handler) GetDelivery(c *gin.Context) {
	id, err := model.ParseDeliveryID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("Invalid delivery ID", err.Error()))
		return
	}

	report, err := h.dispatcher.GetDelivery(c.Request.Context(), id)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, model.NewErrorResponse("Delivery not found", err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse("Failed to get delivery", err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse("Delivery found", report))
}

func (h *Handler) RetryDelivery(c *gin.Context) {
	id, err := model.ParseDeliveryID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("Invalid delivery ID", err.Error()))
		return
	}

	resp := h.dispatcher.RetryDelivery(c.Request.Context(), id)
	handler.JSON(c, http.StatusOK, resp)
}

func (h *Handler) CancelDelivery(c *gin.Context) {
	id, err := model.ParseDeliveryID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("Invalid delivery ID", err.Error()))
		return
	}

	resp := h.dispatcher.CancelDelivery(c.Request.Context(), id)
	handler.JSON(c, http.StatusOK, resp)
}

func (h *Handler) ListDeliveries(c *gin.Context) {
	id, err := model.ParseNotificationID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("Invalid notification ID", err.Error()))
		return
	}

	reports, err := h.dispatcher.ListDeliveries(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse("Failed to list deliveries", err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse("Deliveries found", reports))
}

func (h *Handler) Stats(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("Invalid request body", "days must be a positive integer"))
		return
	}

	stats, err := h.dispatcher.Stats(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse("Failed to get delivery stats", err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse("Delivery stats", stats))
}

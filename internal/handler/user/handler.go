package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/notify-api/internal/handler"
	"github.com/jwalitptl/notify-api/internal/model"
	userService "github.com/jwalitptl/notify-api/internal/service/user"
)

type Handler struct {
	service userService.Service
}

func NewHandler(service userService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.POST("", h.CreateUser)
		users.GET("", h.ListActiveUsers)
		users.GET("/:id", h.GetUser)
		users.PATCH("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)
		users.POST("/:id/activate", h.ActivateUser)
		users.POST("/:id/deactivate", h.DeactivateUser)
		users.POST("/:id/preferences", h.AddPreference)
		users.DELETE("/:id/preferences/:channel", h.RemovePreference)
	}
}

type preferenceRequest struct {
	Channel string `json:"channel" binding:"required,oneof=email sms chat"`
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err)
		return
	}

	resp := h.service.Create(c.Request.Context(), &req)
	handler.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) ListActiveUsers(c *gin.Context) {
	resp := h.service.ListActive(c.Request.Context())
	handler.JSON(c, http.StatusOK, resp)
}

func (h *Handler) GetUser(c *gin.Context) {
	resp := h.service.Get(c.Request.Context(), c.Param("id"))
	handler.JSON(c, http.StatusOK, resp)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var req model.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err)
		return
	}

	resp := h.service.Update(c.Request.Context(), c.Param("id"), &req)
	handler.JSON(c, http.StatusOK, resp)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	resp := h.service.Delete(c.Request.Context(), c.Param("id"))
	handler.JSON(c, http.StatusOK, resp)
}

func (h *Handler) ActivateUser(c *gin.Context) {
	resp := h.service.SetActive(c.Request.Context(), c.Param("id"), true)
	handler.JSON(c, http.StatusOK, resp)
}

func (h *Handler) DeactivateUser(c *gin.Context) {
	resp := h.service.SetActive(c.Request.Context(), c.Param("id"), false)
	handler.JSON(c, http.StatusOK, resp)
}

func (h *Handler) AddPreference(c *gin.Context) {
	var req preferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err)
		return
	}

	resp := h.service.AddPreference(c.Request.Context(), c.Param("id"), req.Channel)
	handler.JSON(c, http.StatusOK, resp)
}

func (h *Handler) RemovePreference(c *gin.Context) {
	resp := h.service.RemovePreference(c.Request.Context(), c.Param("id"), c.Param("channel"))
	handler.JSON(c, http.StatusOK, resp)
}

package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/notify-api/internal/provider"
)

type Handler struct {
	db       *sqlx.DB
	registry *provider.Registry
}

func NewHandler(db *sqlx.DB, registry *provider.Registry) *Handler {
	return &Handler{
		db:       db,
		registry: registry,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
		health.GET("/providers", h.ProvidersCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"reason": "Database connection failed",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

// ProvidersCheck validates the configuration of every registered
// provider. A misconfigured provider does not fail liveness; it only
// shows up here.
func (h *Handler) ProvidersCheck(c *gin.Context) {
	failed := h.registry.ValidateAll(c.Request.Context())

	status := http.StatusOK
	if len(failed) > 0 {
		status = http.StatusServiceUnavailable
	}

	out := map[string]string{}
	for _, p := range h.registry.All() {
		if err, ok := failed[p.Name()]; ok {
			out[p.Name()] = err.Error()
		} else {
			out[p.Name()] = "UP"
		}
	}
	c.JSON(status, gin.H{"providers": out})
}

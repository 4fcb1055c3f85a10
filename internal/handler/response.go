package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/notify-api/internal/model"
)

// JSON writes an operation response with a status code derived from the
// outcome: okStatus on success, 404 for missing resources, 400 for
// everything else the use case rejected.
func JSON(c *gin.Context, okStatus int, resp *model.OperationResponse) {
	if resp.Success {
		c.JSON(okStatus, resp)
		return
	}
	if strings.Contains(strings.ToLower(resp.Message), "not found") {
		c.JSON(http.StatusNotFound, resp)
		return
	}
	c.JSON(http.StatusBadRequest, resp)
}

func BadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.NewErrorResponse("Invalid request body", err.Error()))
}

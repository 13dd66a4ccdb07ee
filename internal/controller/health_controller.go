package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketing-insights-backend/internal/model"
)

type HealthController struct{}

func NewHealthController() *HealthController {
	return &HealthController{}
}

func RegisterHealthRoutes(router *gin.Engine, controller *HealthController) {
	router.GET("/health", controller.HandleHealth)
}

// HandleHealth godoc
// @Summary      Health check
// @Description  Reports whether the service is up and able to accept queries.
// @Tags         health
// @Produce      json
// @Success      200 {object} model.Response "Service is healthy"
// @Router       /health [get]
func (c *HealthController) HandleHealth(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, &model.Response{
		Success: true,
		Data:    map[string]string{"status": "ok"},
	})
}

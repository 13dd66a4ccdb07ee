package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"marketing-insights-backend/internal/dto"
	"marketing-insights-backend/internal/model"
	"marketing-insights-backend/internal/orchestrator"
	"marketing-insights-backend/internal/store"
	"marketing-insights-backend/internal/util"
)

type QueryController struct {
	orchestrator *orchestrator.Orchestrator
	history      store.HistoryStore
}

func NewQueryController(orchestrator *orchestrator.Orchestrator, history store.HistoryStore) *QueryController {
	return &QueryController{
		orchestrator: orchestrator,
		history:      history,
	}
}

func RegisterQueryRoutes(router *gin.Engine, controller *QueryController) {
	v1 := router.Group("/api/v1/insights")
	{
		v1.POST("/query", controller.HandleQuery)
		v1.GET("/history", controller.HandleHistory)
	}
}

// HandleQuery godoc
// @Summary      Answer a natural language marketing question
// @Description  Takes a natural language question about website analytics or SEO health. Classifies the intent, queries Google Analytics and/or the SEO spreadsheet, and returns a narrated answer with trend analysis, alerts, and a confidence level.
// @Tags         insights
// @Accept       json
// @Produce      json
// @Param        request body dto.QueryRequest true "Natural language query with optional property and spreadsheet overrides"
// @Success      200 {object} model.Response "Query processed. Contains the narrated answer, raw data, and routing metadata."
// @Failure      400 {object} model.Response "Invalid query, property ID, or spreadsheet ID"
// @Failure      500 {object} model.Response "Internal server error during processing"
// @Router       /api/v1/insights/query [post]
func (c *QueryController) HandleQuery(ctx *gin.Context) {
	start := time.Now()
	requestID := uuid.NewString()

	var req dto.QueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Str("request_id", requestID).Msg("Invalid query request body")
		ctx.JSON(http.StatusBadRequest, model.NewResponse("INVALID_QUERY: "+err.Error(), nil))
		return
	}

	req.Query = util.SanitizeQuery(req.Query)
	if ok, reason := util.ValidateQueryLength(req.Query); !ok {
		log.Warn().Str("request_id", requestID).Str("reason", reason).Msg("Query failed validation")
		ctx.JSON(http.StatusBadRequest, model.NewResponse("INVALID_QUERY: "+reason, nil))
		return
	}
	if req.PropertyID != "" && !util.ValidatePropertyID(req.PropertyID) {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("INVALID_PROPERTY_ID: property ID must be 5-15 digits", nil))
		return
	}
	if req.SpreadsheetID != "" && !util.ValidateSpreadsheetID(req.SpreadsheetID) {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("INVALID_SPREADSHEET_ID: spreadsheet ID must be 20-100 characters of letters, digits, hyphens, or underscores", nil))
		return
	}

	log.Info().Str("request_id", requestID).Str("query", req.Query).Msg("Processing insights query")

	result, intent := c.orchestrator.ProcessQuery(ctx.Request.Context(), req, requestID)
	response := orchestrator.BuildResponse(result, intent, requestID, start)

	c.history.Add(ctx.Request.Context(), store.QueryRecord{
		RequestID: requestID,
		Query:     req.Query,
		Intent:    intent,
		Answer:    result.Answer,
		Success:   result.Success,
		AskedAt:   start,
	})

	if !response.Success {
		log.Error().Str("request_id", requestID).Str("intent", intent).Msg("Query processing failed")
		if response.Error != nil {
			wrapped := "INTERNAL_ERROR: " + *response.Error
			response.Error = &wrapped
		}
		ctx.JSON(http.StatusInternalServerError, response)
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// HandleHistory godoc
// @Summary      List recently answered queries
// @Description  Returns the most recent queries answered by this instance, newest first. History is in-memory and resets on restart.
// @Tags         insights
// @Produce      json
// @Param        limit query int false "Maximum number of records to return (default 20)"
// @Success      200 {object} model.Response "Recent query records"
// @Failure      400 {object} model.Response "Invalid limit parameter"
// @Router       /api/v1/insights/history [get]
func (c *QueryController) HandleHistory(ctx *gin.Context) {
	limit := 20
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			ctx.JSON(http.StatusBadRequest, model.NewResponse("INVALID_QUERY: limit must be a positive integer", nil))
			return
		}
		limit = parsed
	}

	records := c.history.Recent(ctx.Request.Context(), limit)
	ctx.JSON(http.StatusOK, &model.Response{
		Success: true,
		Data:    records,
	})
}

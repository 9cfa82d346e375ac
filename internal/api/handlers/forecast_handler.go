package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ForecastService is what the forecast endpoints need from the service layer
type ForecastService interface {
	Run(ctx context.Context, req domain.ForecastRequest) (*domain.ForecastResponse, error)
	Latest(ctx context.Context) (*domain.ForecastSnapshot, error)
	ListRuns(ctx context.Context, limit int) ([]domain.ForecastRun, error)
}

type ForecastHandler struct {
	service ForecastService
}

func NewForecastHandler(service ForecastService) *ForecastHandler {
	return &ForecastHandler{service: service}
}

// RunForecast handles POST /forecast
func (h *ForecastHandler) RunForecast(c *gin.Context) {
	var req domain.ForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.ForecastResponse{
			Error:   domain.CodeInvalidRequest,
			Message: err.Error(),
		})
		return
	}

	resp, err := h.service.Run(c.Request.Context(), req)
	if err != nil {
		fe := domain.NewForecastError(err)
		c.JSON(statusForCode(fe.Code), domain.ForecastResponse{
			Error:   fe.Code,
			Message: fe.Message,
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetLatest handles GET /forecast/latest
func (h *ForecastHandler) GetLatest(c *gin.Context) {
	snapshot, err := h.service.Latest(c.Request.Context())
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no forecast has been run yet"})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to load latest forecast")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load latest forecast", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// ListRuns handles GET /forecast/runs
func (h *ForecastHandler) ListRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200"})
			return
		}
		limit = parsed
	}

	runs, err := h.service.ListRuns(c.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list forecast runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list forecast runs", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func statusForCode(code string) int {
	switch code {
	case domain.CodeInvalidRequest, domain.CodeInvalidBudget:
		return http.StatusBadRequest
	case domain.CodeNoData:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

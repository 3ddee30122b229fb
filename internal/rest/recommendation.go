package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"marketReco/business/recommend"
	"marketReco/domain"
	"marketReco/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	RecommendationHandler struct {
		validate        *validator.Validate
		scheduler       PipelineScheduler
		recoRepo        RecommendationReader
		defaultStrategy string
	}

	PipelineScheduler interface {
		RunManual(ctx context.Context, params recommend.ManualRunParams) (*recommend.RunResult, error)
		Status() recommend.SchedulerStatus
	}

	RecommendationReader interface {
		FindActiveByUser(ctx context.Context, userID uint, strategy string) (*domain.RecommendationRecord, []domain.RankedRecommendation, error)
	}

	TriggerRunInput struct {
		Scope       string     `json:"scope" validate:"omitempty,oneof=all single segment"`
		UserIDs     []uint     `json:"user_ids" validate:"omitempty,dive,gt=0"`
		Strategy    *string    `json:"strategy"`
		TopK        *int       `json:"top_k"`
		RecencyDays *int       `json:"recency_days"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
	}
)

// ResponseError represent the response error struct
type ResponseError struct {
	Message string `json:"message"`
}

func NewRecommendationHandler(scheduler PipelineScheduler, recoRepo RecommendationReader, defaultStrategy string) *RecommendationHandler {
	return &RecommendationHandler{
		validate:        validator.New(),
		scheduler:       scheduler,
		recoRepo:        recoRepo,
		defaultStrategy: defaultStrategy,
	}
}

// POST /api/v1/admin/recommendations/run
func (h *RecommendationHandler) TriggerRun(c echo.Context) error {
	ctx := c.Request().Context()

	var request TriggerRunInput
	if err := c.Bind(&request); err != nil {
		logger.Error("invalid trigger request body", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validate.Struct(&request); err != nil {
		logger.Error("trigger request validation failed", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	result, err := h.scheduler.RunManual(ctx, recommend.ManualRunParams{
		Scope:       request.Scope,
		UserIDs:     request.UserIDs,
		Strategy:    request.Strategy,
		TopK:        request.TopK,
		RecencyDays: request.RecencyDays,
		StartDate:   request.StartDate,
		EndDate:     request.EndDate,
	})
	if err != nil {
		if errors.Is(err, recommend.ErrRunInProgress) {
			return c.JSON(http.StatusConflict, ResponseError{Message: err.Error()})
		}
		logger.Error("failed to start pipeline run", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(result))
}

// GET /api/v1/admin/recommendations/status
func (h *RecommendationHandler) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, fres.Response.StatusOK(h.scheduler.Status()))
}

// GET /api/v1/recommendations?strategy=hybrid
func (h *RecommendationHandler) GetMyRecommendations(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Get("user_id").(uint)

	strategy := c.QueryParam("strategy")
	if strategy == "" {
		strategy = h.defaultStrategy
	}

	record, items, err := h.recoRepo.FindActiveByUser(ctx, userID, strategy)
	if err != nil {
		logger.Error("failed to load recommendations", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}
	if record == nil {
		return c.JSON(http.StatusNotFound, ResponseError{Message: "no recommendations available"})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(echo.Map{
		"strategy":     record.Strategy,
		"generated_at": record.GeneratedAt,
		"expires_at":   record.ExpiresAt,
		"items":        items,
	}))
}

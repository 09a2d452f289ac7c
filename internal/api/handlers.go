package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "travel-planner/internal/common/errors"
	"travel-planner/internal/common/logger"
	"travel-planner/internal/pipeline"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type itineraryResponse struct {
	Itinerary string `json:"itinerary"`
	Filename  string `json:"filename"`
	RequestID string `json:"requestId"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg, RequestID: RequestID(c)})
}

// writeAppError answers with the status mapped from the error code. Model
// failures get a retry hint instead of backend details.
func writeAppError(c *gin.Context, err error) {
	stdErr := apperrors.AsStandardError(err)
	status := apperrors.HTTPStatus(stdErr.Code)

	resp := errorResponse{Error: stdErr.Message, Code: string(stdErr.Code), RequestID: RequestID(c)}
	switch stdErr.Code {
	case apperrors.ErrCodeInvalidTripRequest, apperrors.ErrCodeQuotaExceeded:
		resp.Details = stdErr.Details
	case apperrors.ErrCodeLLMGenerationFailed, apperrors.ErrCodeLLMTimeout:
		resp.Error = "could not generate plan, try again"
	}
	writeJSON(c, status, resp)
}

type ItineraryHandler struct {
	planner   ItineraryPlanner
	quota     QuotaChecker
	timeout   time.Duration
	minBudget float64
	logger    logger.Logger
}

func NewItineraryHandler(deps Deps) *ItineraryHandler {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &ItineraryHandler{
		planner:   deps.Planner,
		quota:     deps.Quota,
		timeout:   deps.RequestTimeout,
		minBudget: deps.MinBudget,
		logger:    log.With(map[string]interface{}{"component": "itinerary-api"}),
	}
}

// Create handles POST /api/v1/itineraries.
func (h *ItineraryHandler) Create(c *gin.Context) {
	itinerary, ok := h.plan(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, itineraryResponse{
		Itinerary: itinerary.Markdown,
		Filename:  itinerary.Filename,
		RequestID: RequestID(c),
	})
}

// Download handles POST /api/v1/itineraries/download and returns the markdown as a file.
func (h *ItineraryHandler) Download(c *gin.Context) {
	itinerary, ok := h.plan(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", itinerary.Filename))
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(itinerary.Markdown))
}

func (h *ItineraryHandler) plan(c *gin.Context) (*pipeline.Itinerary, bool) {
	var req pipeline.TripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return nil, false
	}
	if err := req.Validate(); err != nil {
		writeAppError(c, err)
		return nil, false
	}
	if h.minBudget > 0 && req.Budget < h.minBudget {
		writeAppError(c, apperrors.NewInvalidTripRequestError(
			fmt.Sprintf("budget must be at least %.0f", h.minBudget)))
		return nil, false
	}

	ctx := c.Request.Context()
	if h.quota != nil {
		usage, err := h.quota.Allow(ctx, c.ClientIP())
		if err != nil {
			h.logger.Warn("itinerary request refused by quota", map[string]interface{}{
				"clientIp":  c.ClientIP(),
				"requestId": RequestID(c),
				"error":     err,
			})
			writeAppError(c, err)
			return nil, false
		}
		c.Header("X-Quota-Remaining", fmt.Sprint(usage.Remaining))
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	itinerary, err := h.planner.Plan(ctx, req)
	if err != nil {
		h.logger.Error("itinerary generation failed", map[string]interface{}{
			"requestId":   RequestID(c),
			"destination": req.DestinationCity,
			"error":       err,
		})
		writeAppError(c, err)
		return nil, false
	}

	h.logger.Info("itinerary generated", map[string]interface{}{
		"requestId":   RequestID(c),
		"destination": req.DestinationCity,
		"days":        req.Days(),
		"chars":       len(itinerary.Markdown),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return itinerary, true
}

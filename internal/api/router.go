// Package api exposes the itinerary pipeline over HTTP with gin.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"travel-planner/internal/common/logger"
	"travel-planner/internal/pipeline"
	"travel-planner/internal/quota"
)

// ItineraryPlanner runs one trip request through the pipeline.
type ItineraryPlanner interface {
	Plan(ctx context.Context, req pipeline.TripRequest) (*pipeline.Itinerary, error)
}

// QuotaChecker consumes one request from a client's allowance.
type QuotaChecker interface {
	Allow(ctx context.Context, client string) (quota.Usage, error)
}

type Deps struct {
	Planner        ItineraryPlanner
	Quota          QuotaChecker // nil disables the daily limit
	Logger         logger.Logger
	RequestTimeout time.Duration
	MinBudget      float64
	MetricsHandler http.Handler
}

func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.MetricsHandler == nil {
		deps.MetricsHandler = promhttp.Handler()
	}

	r := gin.New()
	r.Use(RequestLogger(deps.Logger), Recovery(deps.Logger))

	h := NewItineraryHandler(deps)
	v1 := r.Group("/api/v1")
	v1.POST("/itineraries", h.Create)
	v1.POST("/itineraries/download", h.Download)

	r.GET("/healthz", func(c *gin.Context) {
		writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(deps.MetricsHandler))

	return r
}

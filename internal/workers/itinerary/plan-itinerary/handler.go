package planitinerary

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"travel-planner/internal/common/config"
	"travel-planner/internal/common/errors"
	"travel-planner/internal/common/logger"
	"travel-planner/internal/common/metrics"
	"travel-planner/internal/common/validation"
	"travel-planner/internal/pipeline"
)

const TaskType = "plan-itinerary"

// commandTimeout bounds the complete/fail/throw calls sent after the pipeline
// finished, independent of the pipeline deadline.
const commandTimeout = 10 * time.Second

// Planner runs the itinerary pipeline for one request.
type Planner interface {
	Plan(ctx context.Context, req pipeline.TripRequest) (*pipeline.Itinerary, error)
}

type Handler struct {
	config       *Config
	planner      Planner
	schema       *validation.Schema
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Planner      Planner
	CustomConfig *Config
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Planner == nil {
		return nil, fmt.Errorf("%s: planner is required", TaskType)
	}

	schema, err := validation.Compile(inputSchema)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.With(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       cfg,
		planner:      opts.Planner,
		schema:       schema,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}, nil
}

func (h *Handler) Config() *Config { return h.config }

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing itinerary job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	var output *Output
	if err == nil {
		output, err = h.Execute(ctx, input)
	}

	cmdCtx, cmdCancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cmdCancel()

	if err != nil {
		h.failJob(cmdCtx, client, job, err)
		return
	}

	h.completeJob(cmdCtx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidTripRequestError("job variables are not a JSON object: " + err.Error())
	}

	result := h.schema.Validate(variables)
	if !result.Valid {
		return nil, errors.NewInvalidTripRequestError(fmt.Sprintf("%v", result.GetErrorMessages()))
	}

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, errors.NewInvalidTripRequestError(err.Error())
	}
	return &input, nil
}

// Execute plans the trip described by input.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Budget < h.config.MinBudget {
		return nil, errors.NewInvalidTripRequestError(fmt.Sprintf("budget must be at least %.0f", h.config.MinBudget))
	}

	itinerary, err := h.planner.Plan(ctx, input.TripRequest())
	if err != nil {
		return nil, err
	}

	h.logger.Info("itinerary planned", map[string]interface{}{
		"destination": input.DestinationCity,
		"filename":    itinerary.Filename,
		"chars":       len(itinerary.Markdown),
	})

	return &Output{
		FinalItinerary: itinerary.Markdown,
		LocationInfo:   itinerary.LocationInfo,
		GuideInfo:      itinerary.GuideInfo,
		Filename:       itinerary.Filename,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	h.logger.Info("itinerary job completed", map[string]interface{}{
		"jobKey":   job.GetKey(),
		"filename": output.Filename,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	code := errors.AsStandardError(err).Code
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

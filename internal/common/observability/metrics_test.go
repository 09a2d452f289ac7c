package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStageSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	obs, err := New("travel-planner-test",
		WithRegisterer(promclient.NewRegistry()),
		WithSpanProcessor(recorder),
	)
	require.NoError(t, err)
	defer obs.Shutdown()

	ctx := obs.StageStarted(context.Background(), "location")
	obs.StageFinished(ctx, "location", 15*time.Millisecond, nil)

	ctx = obs.StageStarted(context.Background(), "guide")
	obs.StageFinished(ctx, "guide", 5*time.Millisecond, errors.New("model down"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "pipeline.stage.location", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, "pipeline.stage.guide", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestZeroValueIsSafe(t *testing.T) {
	var obs Observability
	ctx := obs.StageStarted(context.Background(), "planner")
	obs.StageFinished(ctx, "planner", time.Millisecond, nil)
	obs.RecordRun(ctx, "success")
	obs.Shutdown()
}

func TestMetricsExportedToRegistry(t *testing.T) {
	reg := promclient.NewRegistry()
	obs, err := New("travel-planner-test", WithRegisterer(reg))
	require.NoError(t, err)
	defer obs.Shutdown()

	obs.RecordRun(context.Background(), "success")

	families, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "itinerary_runs") {
			found = true
		}
	}
	assert.True(t, found, "pipeline run counter not exported")
}

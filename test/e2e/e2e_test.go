// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel-planner/internal/app"
	"travel-planner/internal/common/camunda"
	"travel-planner/internal/common/config"
	"travel-planner/internal/common/logger"
	"travel-planner/internal/llm"
	planitinerary "travel-planner/internal/workers/itinerary/plan-itinerary"
)

const processID = "trip-planning"

// TestTripPlanningProcess runs the plan-itinerary worker against a live Zeebe
// gateway. Set ZEEBE_ADDRESS (e.g. localhost:26500) to enable it.
func TestTripPlanningProcess(t *testing.T) {
	addr := os.Getenv("ZEEBE_ADDRESS")
	if addr == "" {
		t.Skip("ZEEBE_ADDRESS not set; skipping end-to-end test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log := logger.NewTestLogger(t)

	clientCfg := camunda.ClientConfigFrom(config.CamundaConfig{BrokerAddress: addr, RequestTimeout: 10000})
	clientCfg.RetryConfig = &camunda.RetryConfig{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	zeebe, err := camunda.Connect(ctx, clientCfg, log)
	require.NoError(t, err, "zeebe gateway unreachable")
	defer zeebe.Close()

	_, err = zeebe.GetClient().NewDeployResourceCommand().
		AddResourceFile(filepath.Join("testdata", "trip-planning.bpmn")).
		Send(ctx)
	require.NoError(t, err, "deploy trip-planning.bpmn")

	cfg := &config.Config{
		LLM:    config.LLMConfig{Provider: config.ProviderGroq, Model: config.DefaultGroqModel, Temperature: 0.7, APIKey: "offline"},
		Search: config.SearchConfig{Backend: config.BackendStatic, StaticText: "e2e live info", MaxResults: 3},
		Server: config.ServerConfig{MinBudget: 5000},
	}
	planner, err := app.NewPlanner(ctx, cfg, log, app.WithLanguageModel(llm.Echo{}))
	require.NoError(t, err)

	handler, err := planitinerary.NewHandler(planitinerary.HandlerOptions{AppConfig: cfg, Planner: planner, Logger: log})
	require.NoError(t, err)

	w := camunda.StartWorker(zeebe.GetClient(), camunda.WorkerOptions{
		TaskType:      planitinerary.TaskType,
		MaxJobsActive: 2,
		Timeout:       time.Minute,
	}, handler, log)
	defer w.Stop()

	t.Run("itinerary completes the process", func(t *testing.T) {
		vars := runInstance(ctx, t, zeebe, map[string]interface{}{
			"fromCity":        "Delhi",
			"destinationCity": "Singapore",
			"dateFrom":        "2025-03-01",
			"dateTo":          "2025-03-05",
			"interests":       "food, adventure, markets",
			"budget":          30000,
		})

		assert.Equal(t, "TravelPlan_Singapore.md", vars["filename"])
		assert.Contains(t, vars["finalItinerary"], "e2e live info")
		assert.Contains(t, vars["locationInfo"], "Singapore")
		assert.NotEmpty(t, vars["guideInfo"])
	})

	t.Run("low budget ends in the rejection path", func(t *testing.T) {
		vars := runInstance(ctx, t, zeebe, map[string]interface{}{
			"fromCity":        "Delhi",
			"destinationCity": "Singapore",
			"dateFrom":        "2025-03-01",
			"dateTo":          "2025-03-05",
			"interests":       "food",
			"budget":          100,
		})

		assert.NotContains(t, vars, "finalItinerary")
	})
}

func runInstance(ctx context.Context, t *testing.T, zeebe *camunda.Client, variables map[string]interface{}) map[string]interface{} {
	t.Helper()

	cmd, err := zeebe.GetClient().NewCreateInstanceCommand().
		BPMNProcessId(processID).
		LatestVersion().
		VariablesFromMap(variables)
	require.NoError(t, err)

	resp, err := cmd.WithResult().Send(ctx)
	require.NoError(t, err, "process instance did not complete")

	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal([]byte(resp.GetVariables()), &out))
	return out
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "travel-planner/internal/common/errors"
	"travel-planner/internal/common/logger"
	"travel-planner/internal/llm"
	"travel-planner/internal/pipeline"
	"travel-planner/internal/quota"
)

type stubPlanner struct {
	itinerary *pipeline.Itinerary
	err       error
	got       *pipeline.TripRequest
	deadline  bool
}

func (s *stubPlanner) Plan(ctx context.Context, req pipeline.TripRequest) (*pipeline.Itinerary, error) {
	s.got = &req
	_, s.deadline = ctx.Deadline()
	if s.err != nil {
		return nil, s.err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.itinerary, nil
}

type stubQuota struct {
	err   error
	calls int
}

func (q *stubQuota) Allow(context.Context, string) (quota.Usage, error) {
	q.calls++
	if q.err != nil {
		return quota.Usage{Used: 21, Limit: 20}, q.err
	}
	return quota.Usage{Used: 1, Limit: 20, Remaining: 19}, nil
}

func newTestRouter(t *testing.T, planner ItineraryPlanner, q QuotaChecker) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(Deps{
		Planner:        planner,
		Quota:          q,
		Logger:         logger.NewTestLogger(t),
		RequestTimeout: 30 * time.Second,
		MinBudget:      5000,
	})
}

func tripBody(t *testing.T, mutate func(map[string]interface{})) *bytes.Reader {
	t.Helper()
	body := map[string]interface{}{
		"from_city":        "Delhi",
		"destination_city": "Singapore",
		"date_from":        "2025-03-01",
		"date_to":          "2025-03-05",
		"interests":        "food, adventure, markets",
		"budget":           30000,
	}
	if mutate != nil {
		mutate(body)
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func sampleItinerary() *pipeline.Itinerary {
	return &pipeline.Itinerary{Markdown: "# Singapore\n\nDay 1", Filename: "TravelPlan_Singapore.md"}
}

func TestCreateItinerary(t *testing.T) {
	planner := &stubPlanner{itinerary: sampleItinerary()}
	q := &stubQuota{}
	r := newTestRouter(t, planner, q)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/itineraries", tripBody(t, nil))
	req.Header.Set(requestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp itineraryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "# Singapore\n\nDay 1", resp.Itinerary)
	assert.Equal(t, "TravelPlan_Singapore.md", resp.Filename)
	assert.Equal(t, "req-123", resp.RequestID)
	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))
	assert.Equal(t, "19", w.Header().Get("X-Quota-Remaining"))

	require.NotNil(t, planner.got)
	assert.Equal(t, "Delhi", planner.got.FromCity)
	assert.Equal(t, 30000.0, planner.got.Budget)
	assert.True(t, planner.deadline, "request timeout must reach the planner")
	assert.Equal(t, 1, q.calls)
}

func TestCreateItinerary_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       func(t *testing.T) *bytes.Reader
		plannerErr error
		quotaErr   error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed json",
			body:       func(*testing.T) *bytes.Reader { return bytes.NewReader([]byte("{")) },
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "budget below minimum",
			body: func(t *testing.T) *bytes.Reader {
				return tripBody(t, func(m map[string]interface{}) { m["budget"] = 1000 })
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   string(apperrors.ErrCodeInvalidTripRequest),
		},
		{
			name: "invalid dates",
			body: func(t *testing.T) *bytes.Reader {
				return tripBody(t, func(m map[string]interface{}) { m["date_to"] = "2025-02-01" })
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   string(apperrors.ErrCodeInvalidTripRequest),
		},
		{
			name:       "quota exceeded",
			body:       func(t *testing.T) *bytes.Reader { return tripBody(t, nil) },
			quotaErr:   &quota.ExceededError{Client: "192.0.2.1", Limit: 20},
			wantStatus: http.StatusTooManyRequests,
			wantCode:   string(apperrors.ErrCodeQuotaExceeded),
		},
		{
			name:       "model failure",
			body:       func(t *testing.T) *bytes.Reader { return tripBody(t, nil) },
			plannerErr: &llm.Error{Provider: "groq", Model: "m", Err: errors.New("401 invalid api key")},
			wantStatus: http.StatusBadGateway,
			wantCode:   string(apperrors.ErrCodeLLMGenerationFailed),
		},
		{
			name:       "model timeout",
			body:       func(t *testing.T) *bytes.Reader { return tripBody(t, nil) },
			plannerErr: &llm.Error{Provider: "groq", Model: "m", Err: context.DeadlineExceeded},
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   string(apperrors.ErrCodeLLMTimeout),
		},
		{
			name:       "missing state key",
			body:       func(t *testing.T) *bytes.Reader { return tripBody(t, nil) },
			plannerErr: &pipeline.MissingStateKeyError{Stage: "planner", Key: "location_info"},
			wantStatus: http.StatusInternalServerError,
			wantCode:   string(apperrors.ErrCodeMissingStateKey),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planner := &stubPlanner{itinerary: sampleItinerary(), err: tt.plannerErr}
			r := newTestRouter(t, planner, &stubQuota{err: tt.quotaErr})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/itineraries", tt.body(t)))

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.RequestID)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, resp.Code)
			}
		})
	}
}

func TestCreateItinerary_InvalidRequestKeepsQuota(t *testing.T) {
	bodies := map[string]func(map[string]interface{}){
		"bad date":         func(m map[string]interface{}) { m["date_from"] = "March 1" },
		"end before start": func(m map[string]interface{}) { m["date_to"] = "2025-02-01" },
		"no interests":     func(m map[string]interface{}) { m["interests"] = "" },
		"below minimum":    func(m map[string]interface{}) { m["budget"] = 1000 },
	}

	for name, mutate := range bodies {
		t.Run(name, func(t *testing.T) {
			planner := &stubPlanner{itinerary: sampleItinerary()}
			q := &stubQuota{}
			r := newTestRouter(t, planner, q)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/itineraries", tripBody(t, mutate)))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, 0, q.calls, "rejected requests must not use the daily allowance")
			assert.Nil(t, planner.got)
		})
	}
}

func TestCreateItinerary_ModelErrorHidesDetails(t *testing.T) {
	planner := &stubPlanner{err: &llm.Error{Provider: "groq", Model: "m", Err: errors.New("secret backend detail")}}
	r := newTestRouter(t, planner, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/itineraries", tripBody(t, nil)))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "secret backend detail")
	assert.Contains(t, w.Body.String(), "could not generate plan, try again")
}

func TestDownloadItinerary(t *testing.T) {
	r := newTestRouter(t, &stubPlanner{itinerary: sampleItinerary()}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/itineraries/download", tripBody(t, nil)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="TravelPlan_Singapore.md"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "# Singapore\n\nDay 1", w.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t, &stubPlanner{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

type panickingPlanner struct{}

func (panickingPlanner) Plan(context.Context, pipeline.TripRequest) (*pipeline.Itinerary, error) {
	panic("boom")
}

func TestRecovery(t *testing.T) {
	r := newTestRouter(t, panickingPlanner{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/itineraries", tripBody(t, nil)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal error")
}

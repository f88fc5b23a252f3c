package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sancella/sancella/application/port/inbound"
	"github.com/sancella/sancella/application/port/outbound"
	"github.com/sancella/sancella/domain"
	"github.com/sancella/sancella/domain/analytics"
	apperror "github.com/sancella/sancella/domain/error"
	"github.com/sancella/sancella/infrastructure/http/middleware"
	"github.com/sancella/sancella/infrastructure/service/logger"
)

type MockDashboardUseCase struct {
	mock.Mock
}

func (m *MockDashboardUseCase) Dashboard(ctx context.Context, req inbound.DashboardRequest) (*inbound.DashboardView, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inbound.DashboardView), args.Error(1)
}

func (m *MockDashboardUseCase) Evaluate(ctx context.Context, req inbound.EvaluateRequest) (*inbound.DashboardView, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inbound.DashboardView), args.Error(1)
}

func (m *MockDashboardUseCase) ListTasks(ctx context.Context, query analytics.TaskQuery) (*inbound.TaskListResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inbound.TaskListResponse), args.Error(1)
}

func (m *MockDashboardUseCase) Export(ctx context.Context, req inbound.ExportRequest) (*inbound.ExportResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inbound.ExportResult), args.Error(1)
}

func newTestRouter(uc inbound.DashboardUseCase) *mux.Router {
	base, _ := test.NewNullLogger()
	router := mux.NewRouter()
	router.HandleFunc("/health", Health).Methods(http.MethodGet)
	NewDashboardHandler(uc, logger.FromLogrus(base, "test")).RegisterRoutes(router.PathPrefix("/v1").Subrouter())
	return router
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	claims := &outbound.TokenClaims{UserID: "7"}
	req = req.WithContext(context.WithValue(req.Context(), middleware.AuthUserKey, claims))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func errorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var data struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	return data.Code
}

func TestHealth(t *testing.T) {
	rec := serve(newTestRouter(new(MockDashboardUseCase)), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Status)
}

func TestGetDashboard(t *testing.T) {
	uc := new(MockDashboardUseCase)
	expected := inbound.DashboardRequest{
		UserID: "7",
		Query: analytics.TaskQuery{
			Search:    "courroie",
			Status:    "completed",
			Project:   "Presse",
			TimeRange: analytics.RangeThisWeek,
		},
	}
	uc.On("Dashboard", mock.Anything, expected).Return(&inbound.DashboardView{
		Metrics: domain.MetricsBundle{TotalTasks: 4},
		Warning: "stale",
	}, nil)

	rec := serve(newTestRouter(uc), http.MethodGet,
		"/v1/dashboard?range=this-week&search=courroie&status=completed&project=Presse", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var view inbound.DashboardView
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &view))
	assert.Equal(t, 4, view.Metrics.TotalTasks)
	assert.Equal(t, "stale", view.Warning)
	uc.AssertExpectations(t)
}

func TestGetDashboard_InvalidQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"period vocabulary as range", "range=week"},
		{"unknown period", "period=decade"},
		{"unknown status", "status=done"},
		{"search too long", "search=" + strings.Repeat("x", 201)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := new(MockDashboardUseCase)
			rec := serve(newTestRouter(uc), http.MethodGet, "/v1/dashboard?"+tt.query, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, string(apperror.ErrCodeInvalidQuery), errorCodeOf(t, rec))
			uc.AssertNotCalled(t, "Dashboard", mock.Anything, mock.Anything)
		})
	}
}

func TestGetDashboard_UseCaseError(t *testing.T) {
	uc := new(MockDashboardUseCase)
	uc.On("Dashboard", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	rec := serve(newTestRouter(uc), http.MethodGet, "/v1/dashboard", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(apperror.ErrCodeInternalServerError), errorCodeOf(t, rec))
}

func TestEvaluate(t *testing.T) {
	uc := new(MockDashboardUseCase)
	uc.On("Evaluate", mock.Anything, mock.MatchedBy(func(req inbound.EvaluateRequest) bool {
		return req.UserID == "7" &&
			req.Query.TimeRange == analytics.RangeToday &&
			strings.Contains(string(req.Tasks), `"id": 1`)
	})).Return(&inbound.DashboardView{
		Diagnostics: []analytics.Diagnostic{{Stage: analytics.StageDecodeTasks, Index: 1, Reason: "malformed record"}},
	}, nil)

	body := `{"query": {"time_range": "today"}, "tasks": [{"id": 1}, null], "interventions": []}`
	rec := serve(newTestRouter(uc), http.MethodPost, "/v1/dashboard/evaluate", body)

	require.Equal(t, http.StatusOK, rec.Code)
	var view inbound.DashboardView
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &view))
	require.Len(t, view.Diagnostics, 1)
	assert.Equal(t, 1, view.Diagnostics[0].Index)
	uc.AssertExpectations(t)
}

func TestEvaluate_BadRequests(t *testing.T) {
	uc := new(MockDashboardUseCase)
	router := newTestRouter(uc)

	rec := serve(router, http.MethodPost, "/v1/dashboard/evaluate", `{"tasks": [`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(apperror.ErrCodeInvalidPayload), errorCodeOf(t, rec))

	rec = serve(router, http.MethodPost, "/v1/dashboard/evaluate", `{"query": {"time_range": "quarter"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(apperror.ErrCodeInvalidQuery), errorCodeOf(t, rec))

	uc.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything)
}

func TestListTasks(t *testing.T) {
	uc := new(MockDashboardUseCase)
	uc.On("ListTasks", mock.Anything, analytics.TaskQuery{Period: analytics.PeriodQuarter}).
		Return(&inbound.TaskListResponse{Tasks: []domain.Task{{ID: "1"}}, Total: 1}, nil)

	rec := serve(newTestRouter(uc), http.MethodGet, "/v1/tasks?period=quarter", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var result inbound.TaskListResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &result))
	assert.Equal(t, 1, result.Total)
}

func TestExport(t *testing.T) {
	t.Run("csv attachment", func(t *testing.T) {
		uc := new(MockDashboardUseCase)
		uc.On("Export", mock.Anything, inbound.ExportRequest{
			UserID: "7",
			Query:  analytics.TaskQuery{TimeRange: analytics.RangeLastMonth},
			Format: inbound.ExportCSV,
		}).Return(&inbound.ExportResult{
			Content:     []byte("Task Title,Project,Status,Priority,Created Date\n"),
			ContentType: "text/csv; charset=utf-8",
			Filename:    "sancella-dashboard-2024-03-13.csv",
		}, nil)

		rec := serve(newTestRouter(uc), http.MethodGet, "/v1/dashboard/export?format=csv&range=last-month", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="sancella-dashboard-2024-03-13.csv"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "Task Title,Project,Status,Priority,Created Date\n", rec.Body.String())
	})

	t.Run("defaults to json", func(t *testing.T) {
		uc := new(MockDashboardUseCase)
		uc.On("Export", mock.Anything, mock.MatchedBy(func(req inbound.ExportRequest) bool {
			return req.Format == inbound.ExportJSON
		})).Return(&inbound.ExportResult{Content: []byte("{}"), ContentType: "application/json", Filename: "x.json"}, nil)

		rec := serve(newTestRouter(uc), http.MethodGet, "/v1/dashboard/export", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		uc.AssertExpectations(t)
	})

	t.Run("unsupported format", func(t *testing.T) {
		uc := new(MockDashboardUseCase)
		uc.On("Export", mock.Anything, mock.Anything).Return(nil, apperror.ErrInvalidExportFormat("xlsx"))

		rec := serve(newTestRouter(uc), http.MethodGet, "/v1/dashboard/export?format=xlsx", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(apperror.ErrCodeInvalidExportFormat), errorCodeOf(t, rec))
	})
}

func TestRoutes_MethodMismatch(t *testing.T) {
	tests := []struct {
		method string
		target string
		allow  string
	}{
		{http.MethodPost, "/v1/dashboard", http.MethodGet},
		{http.MethodDelete, "/v1/dashboard", http.MethodGet},
		{http.MethodGet, "/v1/dashboard/evaluate", http.MethodPost},
		{http.MethodPost, "/v1/dashboard/export", http.MethodGet},
		{http.MethodPut, "/v1/tasks", http.MethodGet},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			uc := new(MockDashboardUseCase)
			rec := serve(newTestRouter(uc), tt.method, tt.target, "")

			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, tt.allow, rec.Header().Get("Allow"))
			assert.Equal(t, "Method not allowed", decodeEnvelope(t, rec).Message)
			uc.AssertNotCalled(t, "Dashboard", mock.Anything, mock.Anything)
		})
	}
}

func TestRoutes_NotFound(t *testing.T) {
	router := newTestRouter(new(MockDashboardUseCase))
	router.NotFoundHandler = http.HandlerFunc(NotFound)

	for _, target := range []string{"/v1/unknown", "/v1/dashboard/extra", "/nowhere"} {
		rec := serve(router, http.MethodGet, target, "")

		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Equal(t, "Route not found", decodeEnvelope(t, rec).Message, target)
	}
}

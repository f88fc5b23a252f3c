package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/sancella/sancella/application/port/inbound"
	"github.com/sancella/sancella/domain/analytics"
	apperror "github.com/sancella/sancella/domain/error"
	"github.com/sancella/sancella/infrastructure/http/middleware"
	"github.com/sancella/sancella/infrastructure/http/response"
	"github.com/sancella/sancella/infrastructure/http/validator"
	"github.com/sancella/sancella/infrastructure/service/logger"
)

// maxEvaluateBody caps the snapshot accepted by the evaluate endpoint
const maxEvaluateBody = 10 << 20

type DashboardHandler struct {
	dashboardUseCase inbound.DashboardUseCase
	logger           logger.Logger
}

func NewDashboardHandler(dashboardUseCase inbound.DashboardUseCase, log logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardUseCase: dashboardUseCase,
		logger:           log,
	}
}

// RegisterRoutes registers the authenticated dashboard routes. Every path also
// gets a method-agnostic fallback so a wrong method is answered with 405: mux
// would otherwise report 404 once a later route misses on the path.
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	routes := []struct {
		path    string
		method  string
		handler http.HandlerFunc
	}{
		{"/dashboard", http.MethodGet, h.GetDashboard},
		{"/dashboard/evaluate", http.MethodPost, h.Evaluate},
		{"/dashboard/export", http.MethodGet, h.Export},
		{"/tasks", http.MethodGet, h.ListTasks},
	}
	for _, rt := range routes {
		router.HandleFunc(rt.path, rt.handler).Methods(rt.method)
	}
	for _, rt := range routes {
		router.HandleFunc(rt.path, methodNotAllowed(rt.method))
	}
}

func methodNotAllowed(allowed ...string) http.HandlerFunc {
	allow := strings.Join(allowed, ", ")
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		response.MethodNotAllowed(w)
	}
}

// NotFound answers requests that match no route
func NotFound(w http.ResponseWriter, r *http.Request) {
	response.NotFound(w, "Route not found")
}

// Health reports liveness
func Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "ok", map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	query, err := parseQuery(r)
	if err != nil {
		response.AppError(w, err)
		return
	}

	view, err := h.dashboardUseCase.Dashboard(r.Context(), inbound.DashboardRequest{
		UserID: middleware.UserID(r.Context()),
		Query:  query,
	})
	if err != nil {
		h.logger.Error(r.Context(), "Dashboard failed", err, nil)
		response.AppError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Dashboard retrieved successfully", view)
}

func (h *DashboardHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req inbound.EvaluateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEvaluateBody)).Decode(&req); err != nil {
		response.AppError(w, apperror.ErrInvalidPayload("invalid request body", err))
		return
	}
	if err := validateQuery(req.Query); err != nil {
		response.AppError(w, err)
		return
	}
	req.UserID = middleware.UserID(r.Context())

	view, err := h.dashboardUseCase.Evaluate(r.Context(), req)
	if err != nil {
		h.logger.Error(r.Context(), "Evaluate failed", err, nil)
		response.AppError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Snapshot evaluated successfully", view)
}

func (h *DashboardHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	query, err := parseQuery(r)
	if err != nil {
		response.AppError(w, err)
		return
	}

	result, err := h.dashboardUseCase.ListTasks(r.Context(), query)
	if err != nil {
		h.logger.Error(r.Context(), "List tasks failed", err, nil)
		response.AppError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Tasks retrieved successfully", result)
}

func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	query, err := parseQuery(r)
	if err != nil {
		response.AppError(w, err)
		return
	}

	format := inbound.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = inbound.ExportJSON
	}

	result, err := h.dashboardUseCase.Export(r.Context(), inbound.ExportRequest{
		UserID: middleware.UserID(r.Context()),
		Query:  query,
		Format: format,
	})
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.File(w, result.ContentType, result.Filename, result.Content)
}

// parseQuery reads the filter parameters shared by the dashboard endpoints.
// range is the dashboard vocabulary, period the task-list one.
func parseQuery(r *http.Request) (analytics.TaskQuery, error) {
	values := r.URL.Query()
	query := analytics.TaskQuery{
		Search:    values.Get("search"),
		Status:    values.Get("status"),
		Project:   values.Get("project"),
		TimeRange: analytics.RangeLabel(values.Get("range")),
		Period:    analytics.Period(values.Get("period")),
	}
	return query, validateQuery(query)
}

func validateQuery(q analytics.TaskQuery) error {
	if !validator.ValidateRange(string(q.TimeRange)) {
		return apperror.ErrInvalidQuery("range", string(q.TimeRange))
	}
	if !validator.ValidatePeriod(string(q.Period)) {
		return apperror.ErrInvalidQuery("period", string(q.Period))
	}
	if !validator.ValidateStatusFilter(q.Status) {
		return apperror.ErrInvalidQuery("status", q.Status)
	}
	if !validator.ValidateSearch(q.Search) {
		return apperror.ErrInvalidQuery("search", "too long")
	}
	return nil
}

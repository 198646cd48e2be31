package valuation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"dcf_valuation/pkg/core/ingest"
	"dcf_valuation/pkg/core/logging"
	"dcf_valuation/pkg/core/pipeline"
	"dcf_valuation/pkg/core/report"
	"dcf_valuation/pkg/core/store"
	"dcf_valuation/pkg/core/valuation"

	"go.uber.org/zap"
)

const serviceName = "DCF Valuation API"

// Runner runs a company valuation.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Report, error)
}

// ReportLoader reads persisted reports.
type ReportLoader interface {
	Load(ctx context.Context, runID string) (*pipeline.Report, error)
	Latest(ctx context.Context, ticker string) (*pipeline.Report, error)
}

// Handler serves the valuation endpoints.
type Handler struct {
	runner         Runner
	reports        ReportLoader
	allowedOrigins map[string]bool
	allowAny       bool
	workers        int
	logger         *zap.Logger
}

// NewHandler creates a handler. An origin of "*" allows every origin.
func NewHandler(runner Runner, allowedOrigins []string, logger *zap.Logger) *Handler {
	h := &Handler{
		runner:         runner,
		allowedOrigins: make(map[string]bool),
		logger:         logging.OrNop(logger),
	}
	for _, o := range allowedOrigins {
		if o == "*" {
			h.allowAny = true
		}
		h.allowedOrigins[strings.TrimRight(o, "/")] = true
	}
	return h
}

// SetWorkers bounds the sensitivity sweep for raw projection requests.
func (h *Handler) SetWorkers(n int) {
	h.workers = n
}

// SetReports enables GET /api/dcf/runs.
func (h *Handler) SetReports(l ReportLoader) {
	h.reports = l
}

// Register mounts the endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/api/dcf", h.HandleDCF)
	mux.HandleFunc("/api/dcf/report", h.HandleReport)
	mux.HandleFunc("/api/dcf/project", h.HandleProject)
	mux.HandleFunc("/api/dcf/runs", h.HandleRuns)
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
}

// HandleDCF values a company and returns the report as JSON.
func (h *Handler) HandleDCF(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.runCompany(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleReport values a company and returns the report as HTML.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.runCompany(w, r)
	if !ok {
		return
	}
	html, err := report.HTML(rep)
	if err != nil {
		h.logger.Error("report rendering failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

// ProjectRequest is a raw engine call with no company data.
type ProjectRequest struct {
	valuation.ProjectionInput
	Cash   *float64 `json:"cash"`
	Debt   *float64 `json:"debt"`
	Shares *float64 `json:"shares_outstanding"`
}

// ProjectResponse is the engine result plus the sweep.
type ProjectResponse struct {
	Result        *valuation.DCFResult       `json:"result"`
	EquityValue   *float64                   `json:"equity_value"`
	PricePerShare *float64                   `json:"price_per_share"`
	Sensitivity   *valuation.SensitivityGrid `json:"sensitivity"`
}

// HandleProject runs the engine directly on the posted inputs.
func (h *Handler) HandleProject(w http.ResponseWriter, r *http.Request) {
	if !h.preflight(w, r) {
		return
	}
	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := valuation.Project(req.ProjectionInput)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	bridge := valuation.EquityBridge{Cash: req.Cash, Debt: req.Debt, Shares: req.Shares}
	grid := valuation.Sensitivity(r.Context(), valuation.SensitivityInput{
		ProjectionInput: req.ProjectionInput,
		Bridge:          bridge,
		Workers:         h.workers,
	})
	writeJSON(w, http.StatusOK, ProjectResponse{
		Result:        res,
		EquityValue:   valuation.Finite(bridge.EquityValue(res.EnterpriseValue)),
		PricePerShare: valuation.FiniteOrNil(bridge.PricePerShare(res.EnterpriseValue)),
		Sensitivity:   grid,
	})
}

// HandleRuns returns a stored report by ?run_id= or the latest for ?ticker=.
func (h *Handler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	h.setCORS(w, r, "GET, OPTIONS")
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet:
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.reports == nil {
		writeError(w, http.StatusNotFound, "report persistence is disabled")
		return
	}

	var (
		rep *pipeline.Report
		err error
	)
	q := r.URL.Query()
	switch {
	case q.Get("run_id") != "":
		rep, err = h.reports.Load(r.Context(), q.Get("run_id"))
	case q.Get("ticker") != "":
		rep, err = h.reports.Latest(r.Context(), strings.ToUpper(q.Get("ticker")))
	default:
		writeError(w, http.StatusBadRequest, "run_id or ticker is required")
		return
	}
	if err != nil {
		if errors.Is(err, store.ErrReportNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("report lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) runCompany(w http.ResponseWriter, r *http.Request) (*pipeline.Report, bool) {
	if !h.preflight(w, r) {
		return nil, false
	}
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return nil, false
	}

	rep, err := h.runner.Run(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("valuation failed", zap.String("ticker", req.Ticker), zap.Error(err))
		} else {
			h.logger.Info("valuation rejected", zap.String("ticker", req.Ticker), zap.Int("status", status), zap.Error(err))
		}
		writeError(w, status, err.Error())
		return nil, false
	}
	return rep, true
}

// setCORS echoes an allowed Origin and advertises methods.
func (h *Handler) setCORS(w http.ResponseWriter, r *http.Request, methods string) {
	if origin := r.Header.Get("Origin"); origin != "" && (h.allowAny || h.allowedOrigins[origin]) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// preflight applies CORS and method checks. It returns false when the
// response has already been written.
func (h *Handler) preflight(w http.ResponseWriter, r *http.Request) bool {
	h.setCORS(w, r, "POST, OPTIONS")

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return false
	case http.MethodPost:
		return true
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, valuation.ErrInvalidInput),
		errors.Is(err, pipeline.ErrInsufficientData),
		errors.Is(err, pipeline.ErrMissingTicker):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrCompanyNotFound):
		return http.StatusNotFound
	case errors.Is(err, valuation.ErrArithmeticDomain):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes before writing the header so an encode failure becomes a
// 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(map[string]string{"detail": "failed to encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

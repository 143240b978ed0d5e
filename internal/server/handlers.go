package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/clarelia/finboard/internal/database"
	"github.com/clarelia/finboard/internal/domain"
	"github.com/clarelia/finboard/internal/store"
	"github.com/clarelia/finboard/internal/syncer"
)

// Handlers implements the reporting API endpoints.
type Handlers struct {
	periodRepo   *store.PeriodRepository
	payrollRepo  *store.PayrollRepository
	runRepo      *store.RunRepository
	orchestrator *syncer.Orchestrator
	reportsDB    *database.DB
	log          zerolog.Logger
}

// NewHandlers creates the API handlers.
func NewHandlers(
	periodRepo *store.PeriodRepository,
	payrollRepo *store.PayrollRepository,
	runRepo *store.RunRepository,
	orchestrator *syncer.Orchestrator,
	reportsDB *database.DB,
	log zerolog.Logger,
) *Handlers {
	return &Handlers{
		periodRepo:   periodRepo,
		payrollRepo:  payrollRepo,
		runRepo:      runRepo,
		orchestrator: orchestrator,
		reportsDB:    reportsDB,
		log:          log.With().Str("handler", "api").Logger(),
	}
}

// HandleHealth handles GET /health
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleGetPeriod handles GET /api/periods/{periodID}
func (h *Handlers) HandleGetPeriod(w http.ResponseWriter, r *http.Request) {
	periodID := chi.URLParam(r, "periodID")
	if _, err := domain.ParsePeriodKey(periodID); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	agg, err := h.periodRepo.Get(periodID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if agg == nil {
		h.writeError(w, http.StatusNotFound, "period not synced: "+periodID)
		return
	}

	h.writeData(w, agg)
}

// HandleGetYear handles GET /api/years/{year}
func (h *Handlers) HandleGetYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid year")
		return
	}

	summary, err := h.periodRepo.RollupYear(year)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summary == nil {
		h.writeError(w, http.StatusNotFound, "no periods synced for year "+strconv.Itoa(year))
		return
	}

	h.writeData(w, summary)
}

// HandleGetPayrollPeriod handles GET /api/payroll/periods/{periodID}/employees
func (h *Handlers) HandleGetPayrollPeriod(w http.ResponseWriter, r *http.Request) {
	periodID := chi.URLParam(r, "periodID")
	if _, err := domain.ParsePeriodKey(periodID); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	employees, err := h.payrollRepo.ListByPeriod(periodID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if employees == nil {
		employees = []domain.PayrollEmployeeAggregate{}
	}

	h.writeData(w, employees)
}

// HandleGetPayrollYear handles GET /api/payroll/years/{year}/employees
func (h *Handlers) HandleGetPayrollYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid year")
		return
	}

	employees, err := h.payrollRepo.RollupYear(year)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeData(w, employees)
}

// HandleListRuns handles GET /api/sync/runs
func (h *Handlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.runRepo.List(limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []domain.SyncRun{}
	}

	h.writeData(w, runs)
}

// syncRequest is the POST /api/sync body.
type syncRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Kind string `json:"kind"`
}

// HandleTriggerSync handles POST /api/sync. The sync runs synchronously
// and the run summary is returned once it completes.
func (h *Handlers) HandleTriggerSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	from, err := domain.ParsePeriodKey(req.From)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := domain.ParsePeriodKey(req.To)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	periods := domain.PeriodRange(from, to)
	if len(periods) == 0 {
		h.writeError(w, http.StatusBadRequest, "to precedes from")
		return
	}

	kind := req.Kind
	if kind == "" {
		kind = "manual"
	}

	run, err := h.orchestrator.Run(r.Context(), periods, kind)
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	h.writeData(w, run)
}

// HandleSystemHealth handles GET /api/system/health
func (h *Handlers) HandleSystemHealth(w http.ResponseWriter, r *http.Request) {
	cpuAvg, memUsed := h.systemStats()

	dbStatus := "ok"
	if err := h.reportsDB.HealthCheck(r.Context()); err != nil {
		dbStatus = err.Error()
	}

	h.writeData(w, map[string]interface{}{
		"status":         "ok",
		"database":       dbStatus,
		"cpu_percent":    cpuAvg,
		"memory_percent": memUsed,
	})
}

// systemStats returns CPU and RAM usage percentages. A short sampling
// interval keeps the endpoint responsive.
func (h *Handlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// writeData wraps a payload in the standard data/metadata envelope.
func (h *Handlers) writeData(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

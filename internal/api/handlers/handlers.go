package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dvloznov/saldo/internal/api/middleware"
	"github.com/dvloznov/saldo/internal/jobs"
	"github.com/dvloznov/saldo/internal/ledger"
	"github.com/dvloznov/saldo/internal/parity"
	"github.com/dvloznov/saldo/internal/store"
	"github.com/dvloznov/saldo/internal/syncer"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerService is what the ledger endpoints need from the sync service.
type LedgerService interface {
	CurrentSnapshot() *ledger.Snapshot
	CurrentSyncState() syncer.SyncState
	ForceRefresh(ctx context.Context) (*ledger.Snapshot, error)
	ForceParityCheck(ctx context.Context) (parity.Verdict, []string)
	AppendTransaction(ctx context.Context, e ledger.Entry) error
	Transfer(ctx context.Context, from, to string, amt decimal.Decimal, note string) error
	SetBalances(ctx context.Context, balances map[string]decimal.Decimal, note string) error
	ParseAmount(field string, raw any) (decimal.Decimal, error)
	Summary() syncer.Summary
}

// RunService lists recorded runs.
type RunService interface {
	ListRuns(ctx context.Context, filter jobs.RunFilter) ([]*jobs.Run, error)
	GetRun(ctx context.Context, id string) (*jobs.Run, error)
}

// LedgerHandler handles snapshot, sync and write endpoints.
type LedgerHandler struct {
	svc LedgerService
	log zerolog.Logger
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(svc LedgerService, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{
		svc: svc,
		log: log,
	}
}

// GetSnapshot handles GET /api/snapshot
func (h *LedgerHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.CurrentSnapshot()
	if snap == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Ledger not loaded yet")
		return
	}

	tail := 0
	if v := r.URL.Query().Get("tail"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid tail")
			return
		}
		tail = n
	}

	records := snap.Tail(tail)
	if records == nil {
		records = []ledger.Record{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": snap.Accounts,
		"checksum": snap.Checksum,
		"built_at": snap.BuiltAt,
		"count":    snap.Len(),
		"records":  records,
	})
}

// GetStatus handles GET /api/status
func (h *LedgerHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.svc.CurrentSyncState())
}

// Refresh handles POST /api/refresh
func (h *LedgerHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.ForceRefresh(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Failed to refresh ledger")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"rows":     snap.Len(),
		"checksum": snap.Checksum,
	})
}

// Parity handles POST /api/parity
func (h *LedgerHandler) Parity(w http.ResponseWriter, r *http.Request) {
	verdict, details := h.svc.ForceParityCheck(r.Context())
	if details == nil {
		details = []string{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"verdict": verdict,
		"details": details,
	})
}

// CreateTransaction handles POST /api/transactions
func (h *LedgerHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID   string `json:"actor_id"`
		AccountID string `json:"account_id"`
		Credit    any    `json:"credit"`
		Debit     any    `json:"debit"`
		Note      string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	credit, err := h.svc.ParseAmount("credit", req.Credit)
	if err != nil {
		h.writeServiceError(w, err, "")
		return
	}
	debit, err := h.svc.ParseAmount("debit", req.Debit)
	if err != nil {
		h.writeServiceError(w, err, "")
		return
	}

	entry := ledger.Entry{
		ActorID:   req.ActorID,
		AccountID: req.AccountID,
		Credit:    credit,
		Debit:     debit,
		Note:      req.Note,
	}
	if err := h.svc.AppendTransaction(r.Context(), entry); err != nil {
		h.writeServiceError(w, err, "Failed to append transaction")
		return
	}

	h.log.Info().
		Str("actor_id", entry.ActorID).
		Str("account_id", entry.AccountID).
		Msg("Transaction appended")
	h.writeAppended(w)
}

// CreateTransfer handles POST /api/transfers
func (h *LedgerHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount any    `json:"amount"`
		Note   string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	amt, err := h.svc.ParseAmount("amount", req.Amount)
	if err != nil {
		h.writeServiceError(w, err, "")
		return
	}
	if err := h.svc.Transfer(r.Context(), req.From, req.To, amt, req.Note); err != nil {
		h.writeServiceError(w, err, "Failed to append transfer")
		return
	}

	h.log.Info().Str("from", req.From).Str("to", req.To).Msg("Transfer appended")
	h.writeAppended(w)
}

// SetBalances handles POST /api/balances
func (h *LedgerHandler) SetBalances(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Balances map[string]any `json:"balances"`
		Note     string         `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Balances) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "balances is required")
		return
	}

	balances := make(map[string]decimal.Decimal, len(req.Balances))
	for acct, raw := range req.Balances {
		v, err := h.svc.ParseAmount("balances."+acct, raw)
		if err != nil {
			h.writeServiceError(w, err, "")
			return
		}
		balances[acct] = v
	}
	if err := h.svc.SetBalances(r.Context(), balances, req.Note); err != nil {
		h.writeServiceError(w, err, "Failed to set balances")
		return
	}

	h.log.Info().Int("accounts", len(balances)).Msg("Balances reset")
	h.writeAppended(w)
}

// GetSummary handles GET /api/summary
func (h *LedgerHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.svc.Summary())
}

func (h *LedgerHandler) writeAppended(w http.ResponseWriter) {
	resp := map[string]interface{}{"status": "appended"}
	if snap := h.svc.CurrentSnapshot(); snap != nil {
		balances := make(map[string]decimal.Decimal, len(snap.Accounts))
		latest := snap.LatestBalances(snap.Accounts)
		for i, acct := range snap.Accounts {
			balances[acct] = latest[i]
		}
		resp["rows"] = snap.Len()
		resp["balances"] = balances
	}
	middleware.WriteJSON(w, http.StatusCreated, resp)
}

// writeServiceError maps the error taxonomy onto status codes.
func (h *LedgerHandler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	var ve *ledger.ValidationError
	switch {
	case errors.As(err, &ve):
		middleware.WriteError(w, http.StatusBadRequest, ve.Error())
	case store.IsTransient(err):
		h.log.Warn().Err(err).Msg(msg)
		middleware.WriteError(w, http.StatusServiceUnavailable, "Ledger store unavailable")
	default:
		h.log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, http.StatusInternalServerError, msg)
	}
}

// RunsHandler handles run history endpoints.
type RunsHandler struct {
	svc RunService
	log zerolog.Logger
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(svc RunService, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{
		svc: svc,
		log: log,
	}
}

// GetRun handles GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := h.svc.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, jobs.ErrRunNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Run not found")
			return
		}
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, run)
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.RunFilter{
		Type:   jobs.RunType(query.Get("type")),
		Status: jobs.RunStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	runs, err := h.svc.ListRuns(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []*jobs.Run{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

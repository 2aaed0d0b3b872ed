package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/saldo/internal/api/handlers"
	"github.com/dvloznov/saldo/internal/api/middleware"
	"github.com/rs/zerolog"
)

// Service is the full surface the router serves.
type Service interface {
	handlers.LedgerService
	handlers.RunService
}

// NewRouter registers every endpoint and wraps them in the middleware chain.
// token protects write endpoints when not empty.
func NewRouter(svc Service, token string, log zerolog.Logger) http.Handler {
	ledgerHandler := handlers.NewLedgerHandler(svc, log)
	runsHandler := handlers.NewRunsHandler(svc, log)

	mux := http.NewServeMux()

	handle := func(path, method string, fn http.HandlerFunc) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
				return
			}
			fn(w, r)
		})
	}

	// Read endpoints
	handle("/api/snapshot", http.MethodGet, ledgerHandler.GetSnapshot)
	handle("/api/status", http.MethodGet, ledgerHandler.GetStatus)
	handle("/api/summary", http.MethodGet, ledgerHandler.GetSummary)

	// Sync endpoints
	handle("/api/refresh", http.MethodPost, ledgerHandler.Refresh)
	handle("/api/parity", http.MethodPost, ledgerHandler.Parity)

	// Write endpoints
	handle("/api/transactions", http.MethodPost, ledgerHandler.CreateTransaction)
	handle("/api/transfers", http.MethodPost, ledgerHandler.CreateTransfer)
	handle("/api/balances", http.MethodPost, ledgerHandler.SetBalances)

	// Runs endpoints
	handle("/api/runs", http.MethodGet, runsHandler.ListRuns)
	handle("/api/runs/", http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		runID := strings.TrimPrefix(r.URL.Path, "/api/runs/")
		if runID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Run ID is required")
			return
		}
		runsHandler.GetRun(w, r, runID)
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		state := svc.CurrentSyncState()
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"connected": state.Connected,
			"parity":    state.Parity,
			"time":      time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(log)(
		middleware.RequestID(log)(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.Auth(token)(mux),
				),
			),
		),
	)
}

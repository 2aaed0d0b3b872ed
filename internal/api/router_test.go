package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/saldo/internal/amount"
	"github.com/dvloznov/saldo/internal/infra/memory"
	"github.com/dvloznov/saldo/internal/jobs/inmemory"
	"github.com/dvloznov/saldo/internal/ledger"
	"github.com/dvloznov/saldo/internal/store"
	"github.com/dvloznov/saldo/internal/syncer"
	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T, token string) (*httptest.Server, *syncer.Service) {
	t.Helper()
	schema := ledger.NewSchema(ledger.Accounts{"BCA", "OVO"})
	adapter := store.NewAdapter("memory", memory.New(nil), schema, time.Second)
	svc := syncer.NewService(adapter, schema, amount.New(0), inmemory.NewStore(0), syncer.Options{ParityAfterRefresh: true}, zerolog.Nop())

	ctx := context.Background()
	if _, err := adapter.EnsureSchema(ctx, ledger.NewRowBuilder(schema).InitialRow()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ForceRefresh(ctx); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(NewRouter(svc, token, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, svc
}

func do(t *testing.T, method, url, body string, header map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && resp.StatusCode != http.StatusNoContent {
		t.Fatalf("%s %s: decoding body: %v", method, url, err)
	}
	return resp, out
}

func TestRouter_EndToEnd(t *testing.T) {
	srv, svc := newTestServer(t, "")

	resp, body := do(t, http.MethodPost, srv.URL+"/api/transactions",
		`{"actor_id":"budi","account_id":"BCA","credit":"150.000","note":"gaji"}`, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/transactions = %d %v", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodPost, srv.URL+"/api/transfers", `{"from":"BCA","to":"OVO","amount":50000}`, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/transfers = %d %v", resp.StatusCode, body)
	}
	balances := body["balances"].(map[string]any)
	if balances["BCA"] != "100000" || balances["OVO"] != "50000" {
		t.Errorf("balances after transfer = %v", balances)
	}

	_, body = do(t, http.MethodGet, srv.URL+"/api/snapshot?tail=2", "", nil)
	if body["count"].(float64) != 4 || len(body["records"].([]any)) != 2 {
		t.Errorf("snapshot = %v", body)
	}

	_, body = do(t, http.MethodPost, srv.URL+"/api/parity", "", nil)
	if body["verdict"] != "ok" {
		t.Errorf("parity = %v", body)
	}

	_, body = do(t, http.MethodGet, srv.URL+"/api/status", "", nil)
	if body["connected"] != true || body["rows"].(float64) != 4 {
		t.Errorf("status = %v", body)
	}

	_, body = do(t, http.MethodGet, srv.URL+"/api/runs?type=append", "", nil)
	if body["count"].(float64) != 2 {
		t.Errorf("append runs = %v", body)
	}
	runID := body["runs"].([]any)[0].(map[string]any)["run_id"].(string)
	resp, _ = do(t, http.MethodGet, srv.URL+"/api/runs/"+runID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /api/runs/%s = %d", runID, resp.StatusCode)
	}

	_, body = do(t, http.MethodGet, srv.URL+"/api/summary", "", nil)
	if body["currency"] != "IDR" {
		t.Errorf("summary = %v", body)
	}

	if got := svc.CurrentSnapshot().Len(); got != 4 {
		t.Errorf("snapshot has %d records, want 4", got)
	}
}

func TestRouter_MethodAndValidation(t *testing.T) {
	srv, _ := newTestServer(t, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, "/api/refresh", "", http.StatusMethodNotAllowed},
		{"unknown account", http.MethodPost, "/api/transactions", `{"actor_id":"a","account_id":"Jenius","credit":1}`, http.StatusBadRequest},
		{"same account transfer", http.MethodPost, "/api/transfers", `{"from":"BCA","to":"BCA","amount":1}`, http.StatusBadRequest},
		{"missing run", http.MethodGet, "/api/runs/missing", "", http.StatusNotFound},
		{"health", http.MethodGet, "/health", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, tt.method, srv.URL+tt.path, tt.body, nil)
			if resp.StatusCode != tt.want {
				t.Errorf("%s %s = %d, want %d (%v)", tt.method, tt.path, resp.StatusCode, tt.want, body)
			}
		})
	}
}

func TestRouter_AuthAndRequestID(t *testing.T) {
	srv, _ := newTestServer(t, "s3cret")

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/refresh", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated POST = %d, want 401", resp.StatusCode)
	}

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/refresh", "", map[string]string{
		"Authorization": "Bearer s3cret",
		"X-Request-ID":  "req-42",
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("authenticated POST = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Request-ID"); got != "req-42" {
		t.Errorf("X-Request-ID = %q", got)
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/status", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET without token = %d, reads stay open", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("generated request id missing")
	}
}

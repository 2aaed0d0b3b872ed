// Package client is a typed HTTP client for the saldo API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/saldo/internal/jobs"
	"github.com/dvloznov/saldo/internal/ledger"
	"github.com/dvloznov/saldo/internal/parity"
	"github.com/dvloznov/saldo/internal/syncer"
	"github.com/shopspring/decimal"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Client talks to one saldo API server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for baseURL. token is sent as a bearer token when
// not empty.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: time.Minute},
	}
}

// Snapshot is the GET /api/snapshot response.
type Snapshot struct {
	Accounts ledger.Accounts `json:"accounts"`
	Checksum string          `json:"checksum"`
	BuiltAt  time.Time       `json:"built_at"`
	Count    int             `json:"count"`
	Records  []ledger.Record `json:"records"`
}

// RefreshResult is the POST /api/refresh response.
type RefreshResult struct {
	Rows     int    `json:"rows"`
	Checksum string `json:"checksum"`
}

// ParityResult is the POST /api/parity response.
type ParityResult struct {
	Verdict parity.Verdict `json:"verdict"`
	Details []string       `json:"details"`
}

// AppendResult is returned by the write endpoints.
type AppendResult struct {
	Status   string                     `json:"status"`
	Rows     int                        `json:"rows"`
	Balances map[string]decimal.Decimal `json:"balances"`
}

// TransactionRequest is the POST /api/transactions body. Amounts are sent
// as text and parsed by the server.
type TransactionRequest struct {
	ActorID   string `json:"actor_id"`
	AccountID string `json:"account_id"`
	Credit    string `json:"credit,omitempty"`
	Debit     string `json:"debit,omitempty"`
	Note      string `json:"note,omitempty"`
}

// TransferRequest is the POST /api/transfers body.
type TransferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
	Note   string `json:"note,omitempty"`
}

// BalancesRequest is the POST /api/balances body.
type BalancesRequest struct {
	Balances map[string]string `json:"balances"`
	Note     string            `json:"note,omitempty"`
}

// Status fetches the sync state.
func (c *Client) Status(ctx context.Context) (*syncer.SyncState, error) {
	var out syncer.SyncState
	return &out, c.do(ctx, http.MethodGet, "/api/status", nil, &out)
}

// Snapshot fetches the cached ledger, the last tail records when tail > 0.
func (c *Client) Snapshot(ctx context.Context, tail int) (*Snapshot, error) {
	path := "/api/snapshot"
	if tail > 0 {
		path += "?tail=" + strconv.Itoa(tail)
	}
	var out Snapshot
	return &out, c.do(ctx, http.MethodGet, path, nil, &out)
}

// Refresh forces a refresh.
func (c *Client) Refresh(ctx context.Context) (*RefreshResult, error) {
	var out RefreshResult
	return &out, c.do(ctx, http.MethodPost, "/api/refresh", nil, &out)
}

// Parity forces a parity check.
func (c *Client) Parity(ctx context.Context) (*ParityResult, error) {
	var out ParityResult
	return &out, c.do(ctx, http.MethodPost, "/api/parity", nil, &out)
}

// AddTransaction appends a transaction.
func (c *Client) AddTransaction(ctx context.Context, req TransactionRequest) (*AppendResult, error) {
	var out AppendResult
	return &out, c.do(ctx, http.MethodPost, "/api/transactions", req, &out)
}

// Transfer appends a transfer.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (*AppendResult, error) {
	var out AppendResult
	return &out, c.do(ctx, http.MethodPost, "/api/transfers", req, &out)
}

// SetBalances appends a reset record.
func (c *Client) SetBalances(ctx context.Context, req BalancesRequest) (*AppendResult, error) {
	var out AppendResult
	return &out, c.do(ctx, http.MethodPost, "/api/balances", req, &out)
}

// Summary fetches totals, balances and warnings.
func (c *Client) Summary(ctx context.Context) (*syncer.Summary, error) {
	var out syncer.Summary
	return &out, c.do(ctx, http.MethodGet, "/api/summary", nil, &out)
}

// Runs lists recorded runs.
func (c *Client) Runs(ctx context.Context, filter jobs.RunFilter) ([]*jobs.Run, error) {
	q := url.Values{}
	if filter.Type != "" {
		q.Set("type", string(filter.Type))
	}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	path := "/api/runs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out struct {
		Runs []*jobs.Run `json:"runs"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Runs, nil
}

// Run fetches one run.
func (c *Client) Run(ctx context.Context, id string) (*jobs.Run, error) {
	var out jobs.Run
	return &out, c.do(ctx, http.MethodGet, "/api/runs/"+url.PathEscape(id), nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encoding body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	return nil
}

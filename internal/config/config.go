// Package config loads service settings from the environment and optional
// .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/saldo/internal/amount"
	"github.com/dvloznov/saldo/internal/ledger"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Supported LEDGER_BACKEND values.
const (
	BackendSheets   = "sheets"
	BackendBigQuery = "bigquery"
	BackendGCS      = "gcs"
	BackendSQLite   = "sqlite"
	BackendNotion   = "notion"
	BackendMemory   = "memory"
)

// DefaultMinBalanceThresholds are the low-balance warning levels per account.
var DefaultMinBalanceThresholds = map[string]decimal.Decimal{
	"BCA":        decimal.NewFromInt(100000),
	"Mandiri":    decimal.NewFromInt(100000),
	"BNI":        decimal.NewFromInt(100000),
	"BRI":        decimal.NewFromInt(100000),
	"Cimb Niaga": decimal.NewFromInt(100000),
	"BTN":        decimal.NewFromInt(100000),
	"Danamon":    decimal.NewFromInt(100000),
	"DANA":       decimal.NewFromInt(50000),
	"OVO":        decimal.NewFromInt(50000),
	"GOPAY":      decimal.NewFromInt(50000),
	"LINK AJA":   decimal.NewFromInt(50000),
}

// Config holds every setting the binaries read.
type Config struct {
	Backend         string
	CredentialsFile string

	SheetID    string
	SheetRange string

	BQProject   string
	BQDataset   string
	BQTable     string
	BQRunsTable string

	GCSBucket string
	GCSObject string

	SQLitePath string

	NotionToken string
	NotionDBID  string

	Accounts  ledger.Accounts
	Currency  string
	Precision int32

	PollInterval       time.Duration
	ParityInterval     time.Duration
	ParityAfterRefresh bool
	FetchTimeout       time.Duration

	MinBalanceThresholds map[string]decimal.Decimal
	AnomalyStdMultiplier float64
	RunHistoryLimit      int

	HTTPPort  string
	APIToken  string
	LogLevel  string
	LogFormat string

	LedgerctlURL string
}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("Load: reading .env: %w", err)
	}
	return parse(os.LookupEnv)
}

// LoadFile builds a config from a single env file, ignoring the process
// environment.
func LoadFile(path string) (*Config, error) {
	m, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("LoadFile: %w", err)
	}
	return FromMap(m)
}

// FromMap builds a config from key/value pairs.
func FromMap(m map[string]string) (*Config, error) {
	return parse(func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	})
}

type lookupFunc func(key string) (string, bool)

func parse(lookup lookupFunc) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	c := &Config{
		Backend:         strings.ToLower(get("LEDGER_BACKEND", BackendSheets)),
		CredentialsFile: get("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		SheetID:         get("SHEET_ID", ""),
		SheetRange:      get("SHEET_RANGE", "Sheet1"),
		BQProject:       get("BQ_PROJECT", ""),
		BQDataset:       get("BQ_DATASET", "saldo"),
		BQTable:         get("BQ_TABLE", "ledger_rows"),
		BQRunsTable:     get("BQ_RUNS_TABLE", ""),
		GCSBucket:       get("GCS_BUCKET", ""),
		GCSObject:       get("GCS_OBJECT", "ledger.csv"),
		SQLitePath:      get("SQLITE_PATH", "saldo.db"),
		NotionToken:     get("NOTION_TOKEN", ""),
		NotionDBID:      get("NOTION_DB_ID", ""),
		Currency:        strings.ToUpper(get("LEDGER_CURRENCY", "IDR")),
		HTTPPort:        get("HTTP_PORT", "8080"),
		APIToken:        get("API_TOKEN", ""),
		LogLevel:        get("LOG_LEVEL", "info"),
		LogFormat:       get("LOG_FORMAT", "console"),
		LedgerctlURL:    strings.TrimRight(get("LEDGERCTL_URL", "http://localhost:8080"), "/"),
	}

	c.Accounts = ledger.DefaultAccounts
	if v := get("LEDGER_ACCOUNTS", ""); v != "" {
		c.Accounts = splitList(v)
	}

	precision, err := strconv.ParseInt(get("AMOUNT_PRECISION", "0"), 10, 32)
	if err != nil || precision < 0 {
		return nil, fmt.Errorf("parse: AMOUNT_PRECISION must be a non-negative integer")
	}
	c.Precision = int32(precision)

	if c.PollInterval, err = parseDuration(get("POLL_INTERVAL", "5s"), "POLL_INTERVAL"); err != nil {
		return nil, err
	}
	if c.ParityInterval, err = parseDuration(get("PARITY_INTERVAL", "5m"), "PARITY_INTERVAL"); err != nil {
		return nil, err
	}
	if c.FetchTimeout, err = parseDuration(get("FETCH_TIMEOUT", "15s"), "FETCH_TIMEOUT"); err != nil {
		return nil, err
	}
	if c.ParityAfterRefresh, err = strconv.ParseBool(get("PARITY_AFTER_REFRESH", "true")); err != nil {
		return nil, fmt.Errorf("parse: PARITY_AFTER_REFRESH: %w", err)
	}
	if c.AnomalyStdMultiplier, err = strconv.ParseFloat(get("ANOMALY_STD_MULTIPLIER", "3"), 64); err != nil {
		return nil, fmt.Errorf("parse: ANOMALY_STD_MULTIPLIER: %w", err)
	}
	if c.RunHistoryLimit, err = strconv.Atoi(get("RUN_HISTORY_LIMIT", "200")); err != nil {
		return nil, fmt.Errorf("parse: RUN_HISTORY_LIMIT: %w", err)
	}

	c.MinBalanceThresholds = DefaultMinBalanceThresholds
	if v := get("MIN_BALANCE_THRESHOLDS", ""); v != "" {
		if c.MinBalanceThresholds, err = parseThresholds(v); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	var missing []string
	require := func(key, value string) {
		if value == "" {
			missing = append(missing, key)
		}
	}

	switch c.Backend {
	case BackendSheets:
		require("SHEET_ID", c.SheetID)
		require("GOOGLE_CREDENTIALS_FILE", c.CredentialsFile)
	case BackendBigQuery:
		require("BQ_PROJECT", c.BQProject)
		require("BQ_DATASET", c.BQDataset)
		require("BQ_TABLE", c.BQTable)
	case BackendGCS:
		require("GCS_BUCKET", c.GCSBucket)
		require("GCS_OBJECT", c.GCSObject)
	case BackendSQLite:
		require("SQLITE_PATH", c.SQLitePath)
	case BackendNotion:
		require("NOTION_TOKEN", c.NotionToken)
		require("NOTION_DB_ID", c.NotionDBID)
	case BackendMemory:
	default:
		return fmt.Errorf("Validate: unknown LEDGER_BACKEND %q", c.Backend)
	}
	if c.BQRunsTable != "" {
		require("BQ_PROJECT", c.BQProject)
	}

	if len(missing) > 0 {
		return fmt.Errorf("Validate: %s backend requires %s", c.Backend, strings.Join(missing, ", "))
	}
	if len(c.Accounts) == 0 {
		return fmt.Errorf("Validate: LEDGER_ACCOUNTS must name at least one account")
	}
	if c.PollInterval <= 0 || c.ParityInterval <= 0 || c.FetchTimeout <= 0 {
		return fmt.Errorf("Validate: intervals and timeouts must be positive")
	}
	return nil
}

// Schema returns the ledger schema for the configured accounts.
func (c *Config) Schema() ledger.Schema {
	return ledger.NewSchema(c.Accounts)
}

// Normalizer returns the amount normalizer for the configured precision.
func (c *Config) Normalizer() amount.Normalizer {
	return amount.New(c.Precision)
}

// ThresholdAccounts returns the accounts with a threshold, sorted.
func (c *Config) ThresholdAccounts() []string {
	out := make([]string, 0, len(c.MinBalanceThresholds))
	for k := range c.MinBalanceThresholds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func splitList(v string) ledger.Accounts {
	var out ledger.Accounts
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(v, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse: %s: %w", key, err)
	}
	return d, nil
}

// parseThresholds reads "BCA=100000,OVO=50000".
func parseThresholds(v string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("parse: MIN_BALANCE_THRESHOLDS: %q is not account=amount", part)
		}
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("parse: MIN_BALANCE_THRESHOLDS: %s: %w", name, err)
		}
		out[strings.TrimSpace(name)] = d
	}
	return out, nil
}

// Package sheets reads and appends ledger rows in a Google Sheet.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ValuesService is the subset of the Sheets values API the backend uses.
// This interface enables mocking of the Sheets API in tests.
type ValuesService interface {
	// Get returns every value in rng, unformatted, with dates as display strings.
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)

	// Append writes rows after the last row of rng without input parsing.
	Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
}

// Client is the concrete implementation of ValuesService on the Sheets v4 API.
type Client struct {
	svc *sheets.Service
}

// NewClient creates a Sheets client from a service account credentials file.
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("NewClient: creating sheets service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Get implements ValuesService.
func (c *Client) Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return resp.Values, nil
}

// Append implements ValuesService.
func (c *Client) Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
	_, err := c.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

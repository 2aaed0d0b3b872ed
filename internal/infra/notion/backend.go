package notion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/saldo/internal/amount"
	"github.com/dvloznov/saldo/internal/ledger"
	"github.com/jomei/notionapi"
)

// PositionProperty orders pages; Notion's created_time is too coarse for
// rows appended together.
const PositionProperty = "Position"

// Backend implements store.Backend on a Notion database with one page per
// ledger row. The note column is the page title, the timestamp, actor and
// account columns are rich text, and every other column is a number.
type Backend struct {
	notion     NotionService
	databaseID string
	schema     ledger.Schema
	norm       amount.Normalizer
	now        func() time.Time
}

// NewBackend returns a backend over the database databaseID.
func NewBackend(notion NotionService, databaseID string, schema ledger.Schema, norm amount.Normalizer) *Backend {
	return &Backend{
		notion:     notion,
		databaseID: databaseID,
		schema:     schema,
		norm:       norm,
		now:        time.Now,
	}
}

// ReadGrid returns the schema header followed by every page in position order.
func (b *Backend) ReadGrid(ctx context.Context) ([][]any, error) {
	pages, err := b.queryAllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReadGrid: %w", err)
	}

	headers := b.schema.Headers()
	grid := make([][]any, 0, len(pages)+1)
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	grid = append(grid, header)

	for _, page := range pages {
		cells := make([]any, len(headers))
		for i, name := range headers {
			cells[i] = cellFromProperty(page.Properties[name])
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

// AppendRows creates one page per row, in order. A header row is skipped.
func (b *Backend) AppendRows(ctx context.Context, rows [][]any) error {
	base := float64(b.now().UnixMilli()) * 1000
	header := ledger.NewHeader(b.schema.Headers())

	for i, cells := range rows {
		if len(cells) > 0 && ledger.CellText(cells[0]) == ledger.ColSeq {
			continue
		}
		props := b.properties(ledger.NewRawRow(header, cells))
		props[PositionProperty] = notionapi.NumberProperty{Number: base + float64(i)}

		if _, err := b.notion.CreatePage(ctx, b.databaseID, props); err != nil {
			return fmt.Errorf("AppendRows: row %d: %w", i, err)
		}
	}
	return nil
}

func (b *Backend) properties(row ledger.RawRow) notionapi.Properties {
	props := notionapi.Properties{
		ledger.ColNote: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: ledger.CellText(row.Get(ledger.ColNote))},
				},
			},
		},
		ledger.ColTimestamp: richText(row.Text(ledger.ColTimestamp)),
		ledger.ColActor:     richText(row.Text(ledger.ColActor)),
		ledger.ColAccount:   richText(row.Text(ledger.ColAccount)),
	}

	numbers := []string{ledger.ColSeq, ledger.ColCredit, ledger.ColDebit, ledger.ColAggregate}
	for _, name := range numbers {
		if n, ok := b.number(row.Get(name)); ok {
			props[name] = notionapi.NumberProperty{Number: n}
		}
	}
	for _, acct := range b.schema.Accounts {
		if n, ok := b.number(row.Balance(acct)); ok {
			props[acct] = notionapi.NumberProperty{Number: n}
		}
	}
	return props
}

func (b *Backend) number(v any) (float64, bool) {
	if strings.TrimSpace(ledger.CellText(v)) == "" {
		return 0, false
	}
	d, err := b.norm.NormalizeStrict(v)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// queryAllPages queries all pages of the database, following pagination.
func (b *Backend) queryAllPages(ctx context.Context) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			Sorts: []notionapi.SortObject{
				{Property: PositionProperty, Direction: notionapi.SortOrderASC},
			},
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := b.notion.QueryDatabase(ctx, b.databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}

func richText(content string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{Content: content},
			},
		},
	}
}

func plainText(parts []notionapi.RichText) string {
	var sb strings.Builder
	for _, p := range parts {
		if p.PlainText != "" {
			sb.WriteString(p.PlainText)
		} else if p.Text != nil {
			sb.WriteString(p.Text.Content)
		}
	}
	return sb.String()
}

// cellFromProperty converts a page property into a grid cell.
func cellFromProperty(prop notionapi.Property) any {
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		return plainText(p.Title)
	case *notionapi.RichTextProperty:
		return plainText(p.RichText)
	case *notionapi.NumberProperty:
		return p.Number
	case notionapi.TitleProperty:
		return plainText(p.Title)
	case notionapi.RichTextProperty:
		return plainText(p.RichText)
	case notionapi.NumberProperty:
		return p.Number
	default:
		return nil
	}
}

// Package fetcher downloads and parses the externally-owned order feed:
// a published spreadsheet exposed as CSV (or XLSX) over HTTP.
package fetcher

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/atelier-ops/orderdesk/internal/model"
	"github.com/atelier-ops/orderdesk/internal/resilience"
)

// SheetFetcher returns the current feed as ordered, column-keyed rows.
// A nil or empty result with an error means fetch failure; the merge
// strategies treat that as a no-op.
type SheetFetcher interface {
	Fetch(ctx context.Context) ([]model.Order, error)
}

// SheetOptions configures the sheet client.
type SheetOptions struct {
	URL    string
	Format string // "csv" (default) or "xlsx"
	HTTP   HTTPOptions
}

// SheetClient fetches the published sheet export and parses it into
// rows. A circuit breaker keeps a dead feed from stalling every sync
// cycle on retries.
type SheetClient struct {
	http    *HTTPFetcher
	url     string
	format  string
	breaker *resilience.Breaker
}

// NewSheetClient creates a sheet client for the given export URL.
func NewSheetClient(opts SheetOptions) *SheetClient {
	format := opts.Format
	if format == "" {
		format = "csv"
	}
	return &SheetClient{
		http:    NewHTTPFetcher(opts.HTTP),
		url:     opts.URL,
		format:  format,
		breaker: resilience.NewBreaker(resilience.DefaultBreakerConfig()),
	}
}

// Fetch downloads and parses the feed.
func (c *SheetClient) Fetch(ctx context.Context) ([]model.Order, error) {
	if c.url == "" {
		return nil, eris.New("fetcher: sheet url not configured")
	}

	var rows []model.Order
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		body, err := c.http.Download(ctx, c.url)
		if err != nil {
			return err
		}

		switch c.format {
		case "xlsx":
			rows, err = ParseXLSXRows(body)
		default:
			rows, err = ParseCSVRows(body)
		}
		return err
	})
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: fetch sheet")
	}

	zap.L().Debug("fetched sheet feed",
		zap.String("format", c.format),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

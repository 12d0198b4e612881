package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for paginated fetches.
var (
	whoopPagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whoop_pages_fetched_total",
		Help: "Total collection pages fetched by endpoint",
	}, []string{"endpoint"})

	whoopRecordsFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whoop_records_fetched_total",
		Help: "Total collection records fetched by endpoint",
	}, []string{"endpoint"})
)

// ErrMissingRecords is wrapped in a PageError when a page has no records array.
var ErrMissingRecords = errors.New("page has no records array")

// Cursor is the opaque continuation token returned as next_token.
type Cursor = string

// Config holds follower configuration.
type Config struct {
	// CursorParam is the query parameter carrying the cursor on follow-up requests.
	CursorParam string
	// ProgressEvery logs progress every N pages (0 disables).
	ProgressEvery int
}

// DefaultConfig returns the configuration for WHOOP collection endpoints.
func DefaultConfig() Config {
	return Config{
		CursorParam:   "nextToken",
		ProgressEvery: 10,
	}
}

// Requester performs one authenticated GET and returns the JSON body.
// *client.Client implements it.
type Requester interface {
	Get(ctx context.Context, pathSuffix string, query url.Values) (json.RawMessage, error)
}

// Page is one decoded collection response.
type Page struct {
	Records   []json.RawMessage
	NextToken Cursor
}

// PageError reports a page whose body is not a collection response.
type PageError struct {
	Endpoint string
	Page     int
	Err      error
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return fmt.Sprintf("malformed page %d from %s: %v", e.Page, e.Endpoint, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PageError) Unwrap() error {
	return e.Err
}

// Follower walks a cursor-paginated endpoint.
type Follower struct {
	requester Requester
	config    Config
}

// NewFollower creates a new follower.
func NewFollower(requester Requester, config Config) *Follower {
	if config.CursorParam == "" {
		config.CursorParam = "nextToken"
	}
	if config.ProgressEvery < 0 {
		config.ProgressEvery = 0
	}

	return &Follower{
		requester: requester,
		config:    config,
	}
}

// FetchAll requests endpoint with query, then keeps requesting with the
// returned cursor until a page comes back without one. It returns every
// record in arrival order. On any error nothing is returned.
// The caller's query is not modified.
func (f *Follower) FetchAll(ctx context.Context, endpoint string, query url.Values) ([]json.RawMessage, error) {
	start := time.Now()

	params := url.Values{}
	for k, v := range query {
		params[k] = append([]string(nil), v...)
	}

	var records []json.RawMessage
	pages := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", endpoint, pages+1, err)
		}

		data, err := f.requester.Get(ctx, endpoint, params)
		if err != nil {
			log.Warn().
				Err(err).
				Str("endpoint", endpoint).
				Int("page", pages+1).
				Int("discarded_records", len(records)).
				Msg("Page fetch failed")
			return nil, fmt.Errorf("fetch %s page %d: %w", endpoint, pages+1, err)
		}
		pages++

		page, err := DecodePage(data)
		if err != nil {
			return nil, &PageError{Endpoint: endpoint, Page: pages, Err: err}
		}

		records = append(records, page.Records...)
		whoopPagesFetchedTotal.WithLabelValues(endpoint).Inc()
		whoopRecordsFetchedTotal.WithLabelValues(endpoint).Add(float64(len(page.Records)))

		if f.config.ProgressEvery > 0 && pages%f.config.ProgressEvery == 0 {
			log.Info().
				Str("endpoint", endpoint).
				Int("pages", pages).
				Int("records", len(records)).
				Msg("Fetch progress")
		}

		if page.NextToken == "" {
			break
		}
		params.Set(f.config.CursorParam, page.NextToken)
	}

	log.Info().
		Str("endpoint", endpoint).
		Int("pages", pages).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return records, nil
}

// DecodePage parses a collection response. A missing or null records field
// is an error; a missing, null or empty next_token ends pagination.
func DecodePage(data []byte) (*Page, error) {
	var raw struct {
		Records   *[]json.RawMessage `json:"records"`
		NextToken *string            `json:"next_token"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	if raw.Records == nil {
		return nil, ErrMissingRecords
	}

	page := &Page{Records: *raw.Records}
	if raw.NextToken != nil {
		page.NextToken = *raw.NextToken
	}
	return page, nil
}

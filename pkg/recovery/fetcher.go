package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/whoop-recovery/pkg/logging"
	"github.com/Sternrassler/whoop-recovery/pkg/pagination"
)

// Requester performs one authenticated GET. *client.Client implements it.
type Requester interface {
	Get(ctx context.Context, pathSuffix string, query url.Values) (json.RawMessage, error)
}

// Config holds fetcher configuration.
type Config struct {
	// Endpoint is the collection path below the API base URL.
	Endpoint string

	// Limit is the page size sent as the limit query parameter.
	Limit int

	// Pagination configures cursor following.
	Pagination pagination.Config
}

// DefaultConfig returns the configuration for the WHOOP recovery collection.
func DefaultConfig() Config {
	return Config{
		Endpoint:   "v1/recovery",
		Limit:      25,
		Pagination: pagination.DefaultConfig(),
	}
}

// Fetcher retrieves recovery records and projects them into a Table.
type Fetcher struct {
	follower *pagination.Follower
	config   Config
	logger   zerolog.Logger
}

// NewFetcher creates a fetcher on top of an authenticated requester.
// Zero config fields fall back to DefaultConfig values.
func NewFetcher(req Requester, cfg Config) *Fetcher {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.Pagination.CursorParam == "" {
		cfg.Pagination = def.Pagination
	}

	return &Fetcher{
		follower: pagination.NewFollower(req, cfg.Pagination),
		config:   cfg,
		logger:   logging.NewLogger("recovery"),
	}
}

// FetchRecovery fetches [start, end] with the default configuration.
func FetchRecovery(ctx context.Context, req Requester, start, end time.Time) (*Table, error) {
	return NewFetcher(req, DefaultConfig()).Fetch(ctx, start, end)
}

// Fetch validates the bounds, follows every page of the collection and
// projects the accumulated records. Any failure returns a nil table.
func (f *Fetcher) Fetch(ctx context.Context, start, end time.Time) (*Table, error) {
	if err := ValidateBound("start", start); err != nil {
		return nil, err
	}
	if err := ValidateBound("end", end); err != nil {
		return nil, err
	}

	query := f.Query(start, end)

	f.logger.Debug().
		Str("endpoint", f.config.Endpoint).
		Str("start", query.Get("start")).
		Str("end", query.Get("end")).
		Msg("Fetching recovery records")

	records, err := f.follower.FetchAll(ctx, f.config.Endpoint, query)
	if err != nil {
		var pageErr *pagination.PageError
		if errors.As(err, &pageErr) {
			return nil, &ProjectionError{Record: -1, Reason: "malformed page", Err: pageErr}
		}
		return nil, fmt.Errorf("fetch recovery: %w", err)
	}

	table, err := Project(records)
	if err != nil {
		f.logger.Warn().Err(err).Int("records", len(records)).Msg("Projection failed")
		return nil, err
	}

	f.logger.Info().
		Int("rows", table.Len()).
		Int("columns", len(table.columns)).
		Msg("Recovery table ready")

	return table, nil
}

// Query returns the first-page query for the given bounds.
func (f *Fetcher) Query(start, end time.Time) url.Values {
	return url.Values{
		"start": []string{FormatBound(start)},
		"end":   []string{FormatBound(end)},
		"limit": []string{strconv.Itoa(f.config.Limit)},
	}
}

// Package recovery fetches WHOOP recovery records for a date range and
// projects them into a timestamp-indexed table.
//
// # Overview
//
// A Fetcher issues GET requests against the recovery collection endpoint,
// scoped by start and end bounds and a page size, and follows the
// next_token cursor until the server stops returning one. The records of
// all pages are accumulated in arrival order and then projected into a
// Table: one row per record, indexed by created_at, with one column per key
// of the record's score object (user_calibrating excluded).
//
// # Usage
//
//	c, err := client.Login(ctx, client.DefaultConfig(), user, pass)
//	if err != nil {
//	    return err
//	}
//
//	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
//	end := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)
//	table, err := recovery.FetchRecovery(ctx, c, start, end)
//
// # Bounds
//
// Both bounds must carry an explicit zone. A zero time, or a time whose
// location is time.Local, is rejected with a *ValidationError before any
// request is sent. Bounds are sent in UTC with a literal Z suffix.
//
// # Errors
//
// Failures are all-or-nothing: an HTTP error on any page, a malformed page
// or a malformed record returns a nil table.
//
//   - *ValidationError: a bound has no zone
//   - *client.HTTPError: transport failure or non-2xx on any page
//   - *ProjectionError: a page or record does not have the expected shape
//
// # Known limitation
//
// There is no page cap and no detection of a repeating cursor. A server
// that returns the same next_token forever keeps the fetch looping until
// the context is cancelled.
package recovery

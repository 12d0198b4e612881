// Package pagination follows cursor-paginated WHOOP collection endpoints.
//
// Collection responses carry a records array and, while more data is
// available, an opaque next_token. The follower re-issues the request with
// that token as the nextToken query parameter until a response arrives
// without one. Pages are fetched strictly one after another.
//
// Example usage:
//
//	follower := pagination.NewFollower(whoopClient, pagination.DefaultConfig())
//	records, err := follower.FetchAll(ctx, "v1/recovery", url.Values{
//		"start": {"2024-02-01T00:00:00Z"},
//		"end":   {"2024-04-20T00:00:00Z"},
//		"limit": {"25"},
//	})
//
// The follower:
//   - Appends records in server order, page after page
//   - Stops only when next_token is absent, null or empty
//   - Returns no partial data: any page error discards what was collected
//
// There is no page cap and no detection of a server that repeats the same
// cursor forever; such a server makes FetchAll loop until ctx is done.
package pagination

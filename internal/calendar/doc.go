// Package calendar is the gateway to the upstream calendar REST API.
//
// A Gateway translates list, get and create operations into authorized HTTP
// exchanges against the Events resource. It fetches a bearer token from a
// TokenProvider on every call and never holds one itself, so a refresh in
// the provider is transparent to callers.
//
// Example usage:
//
//	gw := calendar.NewGateway(baseURL, cache)
//
//	page, err := gw.ListEvents(ctx, calendar.EventQuery{
//		Top:     20,
//		Filter:  "startswith(title,'Meeting')",
//		OrderBy: "startDate desc",
//	})
//	if err != nil {
//		return err
//	}
//
// Failures are typed: *RemoteRequestError for non-2xx responses (including
// 404, see IsNotFound) and *ParseError for bodies that cannot be decoded.
// Token acquisition errors are returned unchanged.
package calendar

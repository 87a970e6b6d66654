// Package pkgerror defines the structured error type used at the HTTP edge.
//
// Handlers return *Error values carrying a user-facing message, a type and a
// stable code; the router and the request lifecycle binder both turn them into
// an HTTP status through StatusOf, so the status written to the client and the
// status recorded in the aggregated log record always agree.
package pkgerror

// Package pkglog contains the local (stdout) logging setup.
//
// It is built around slog and keeps diagnostics queryable by:
//   - Initializing a JSON handler with stable keys ("ts", "severity", "file").
//   - Attaching the request correlation ID (when present) and the service name
//     to each record, so local lines match the aggregated record shipped to the
//     remote log service.
package pkglog

// Package pkguid provides identifier generators.
//
// Correlation ids are random UUIDs (the remote log service validates them as
// UUID v4). Buffered log entries carry a Snowflake sequence so entries sharing
// the same millisecond still sort in append order.
package pkguid

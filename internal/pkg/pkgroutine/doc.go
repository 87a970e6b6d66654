// Package pkgroutine runs named background tasks with a concurrency limit,
// collects their errors and logs panics instead of crashing the process.
package pkgroutine

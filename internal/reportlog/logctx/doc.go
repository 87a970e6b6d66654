// Package logctx buffers the log entries of one request under its
// correlation id.
//
// A Context belongs to exactly one request. The handle travels explicitly on
// the request's context.Context (WithContext / FromContext); there is no
// package-level or goroutine-local state, so two requests can never observe
// each other's entries.
package logctx

// Package pkgrouter wraps HTTP routing and the middleware shared by every endpoint.
//
// It provides a small router abstraction over httprouter plus shared concerns
// like JSON encoding, error mapping, local request logging, recovery and
// correlation ID propagation. Interceptors wrap the application-level Handler
// (they see the returned value and error), which is where the request
// lifecycle binder hooks in.
package pkgrouter

package pkglog

import "context"

// NoCorrelationID is returned by GetCorrelationID when the context carries none.
const NoCorrelationID = "[invalid_chain_id]"

type chainIDContextKey struct{}

// GetCorrelationID returns the correlation ID stored in the context, or
// NoCorrelationID.
func GetCorrelationID(ctx context.Context) string {
	cid, ok := ctx.Value(chainIDContextKey{}).(string)
	if !ok || cid == "" {
		return NoCorrelationID
	}
	return cid
}

// SetCorrelationID stores a correlation ID into the context.
func SetCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, chainIDContextKey{}, cid)
}

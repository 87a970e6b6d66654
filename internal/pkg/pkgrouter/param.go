package pkgrouter

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type routePatternKey struct{}

// GetParam reads a path parameter from the request context (as stored by httprouter).
func GetParam(ctx context.Context, key string) string {
	return httprouter.ParamsFromContext(ctx).ByName(key)
}

// Params returns every path parameter of the matched route. It returns an
// empty map when there are none.
func Params(ctx context.Context) map[string]string {
	params := httprouter.ParamsFromContext(ctx)
	out := make(map[string]string, len(params))
	for _, p := range params {
		out[p.Key] = p.Value
	}
	return out
}

// RoutePattern returns the pattern the request was routed by (for example
// "/items/:id"), or "" outside a registered route.
func RoutePattern(ctx context.Context) string {
	v, _ := ctx.Value(routePatternKey{}).(string)
	return v
}

func withRoutePattern(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), routePatternKey{}, pattern)))
	})
}

package pkgrouter

import (
	"net/http"
	"strings"

	"github.com/shandysiswandi/reportlog/internal/pkg/pkglog"
	"github.com/shandysiswandi/reportlog/internal/pkg/pkguid"
)

// Generator generates a unique string (used for correlation/request IDs).
type Generator interface {
	Generate() string
}

const (
	// HeaderCorrelationID carries the request's correlation id in and out.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is read when HeaderCorrelationID is absent.
	HeaderRequestID = "X-Request-ID"
)

// inboundCID returns the first header value that is a UUID, lower-cased.
// Anything else is ignored so the id echoed back always matches the one
// attached to delivered logs.
func inboundCID(h http.Header) string {
	for _, name := range [...]string{HeaderCorrelationID, HeaderRequestID} {
		v := strings.ToLower(strings.TrimSpace(h.Get(name)))
		if pkguid.IsUUID(v) {
			return v
		}
	}
	return ""
}

func middlewareCorrelationID(uid Generator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := inboundCID(r.Header)
			if cid == "" && uid != nil {
				cid = uid.Generate()
			}

			if cid != "" {
				w.Header().Set(HeaderCorrelationID, cid)
				r = r.WithContext(pkglog.SetCorrelationID(r.Context(), cid))
			}

			next.ServeHTTP(w, r)
		})
	}
}

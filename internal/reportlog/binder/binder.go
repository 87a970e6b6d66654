package binder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/shandysiswandi/reportlog/internal/pkg/pkglog"
	"github.com/shandysiswandi/reportlog/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/reportlog/internal/pkg/pkguid"
	"github.com/shandysiswandi/reportlog/internal/reportlog/client"
	"github.com/shandysiswandi/reportlog/internal/reportlog/entity"
	"github.com/shandysiswandi/reportlog/internal/reportlog/logctx"
)

// Source is the context field of every aggregated payload and marker entry.
const Source = "HttpRequest"

const maxBodyBytes = 64 * 1024

// Dispatcher hands an aggregated payload to delivery. Implementations must not
// hold the caller for the network round trip.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload entity.LogPayload) error
}

// AuthenticatedByFunc names the caller of a request for the authenticatedBy
// field. It must never return a secret.
type AuthenticatedByFunc func(r *http.Request) string

type Dependency struct {
	Dispatcher      Dispatcher
	IDs             pkguid.StringID
	Sequence        pkguid.NumberID
	Clock           func() time.Time
	AuthenticatedBy AuthenticatedByFunc
	// Skip leaves matching requests unreported.
	Skip func(r *http.Request) bool
	// StartMarker buffers a DEBUG "Starting METHOD PATH" entry when the
	// request begins. The closing marker is always buffered.
	StartMarker bool
}

// Binder ties a logctx.Context to the lifetime of each request and flushes
// it as one aggregated payload when the handler returns, fails or panics.
type Binder struct {
	dispatcher  Dispatcher
	ids         pkguid.StringID
	seq         pkguid.NumberID
	now         func() time.Time
	authBy      AuthenticatedByFunc
	skip        func(r *http.Request) bool
	startMarker bool
}

func New(dep Dependency) *Binder {
	b := &Binder{
		dispatcher:  dep.Dispatcher,
		ids:         dep.IDs,
		seq:         dep.Sequence,
		now:         dep.Clock,
		authBy:      dep.AuthenticatedBy,
		skip:        dep.Skip,
		startMarker: dep.StartMarker,
	}
	if b.ids == nil {
		b.ids = pkguid.NewUUID()
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.authBy == nil {
		b.authBy = BearerKeyID
	}
	return b
}

// requestFacts is what the binder records when a request starts.
type requestFacts struct {
	correlationID   string
	method          string
	path            string
	userAgent       string
	authenticatedBy string
	start           time.Time
	metadata        map[string]any
}

// Intercept is a pkgrouter.Interceptor.
func (b *Binder) Intercept(next pkgrouter.Handler) pkgrouter.Handler {
	return func(ctx context.Context, r *http.Request) (resp any, err error) {
		if b.skip != nil && b.skip(r) {
			return next(ctx, r)
		}

		lc := logctx.New(
			logctx.WithClock(b.now),
			logctx.WithSequence(b.seq),
			logctx.WithIDs(b.ids),
		)
		upstream := upstreamCorrelationID(ctx)
		cid := lc.Initialize(b.ids.Generate())

		ctx = pkglog.SetCorrelationID(logctx.WithContext(ctx, lc), cid)
		r = r.WithContext(ctx)

		facts := b.begin(r, cid, upstream)
		if b.startMarker {
			lc.Debug(fmt.Sprintf("Starting %s %s", facts.method, facts.path), Source, map[string]any{
				"userAgent": facts.userAgent,
			})
		}

		defer lc.Clear()
		defer func() {
			if rvr := recover(); rvr != nil {
				b.fail(ctx, lc, facts, panicError(rvr), string(debug.Stack()))
				panic(rvr)
			}
		}()

		resp, err = next(ctx, r)
		if err != nil {
			b.fail(ctx, lc, facts, err, "")
			return resp, err
		}

		b.complete(ctx, lc, facts, pkgrouter.ResponseStatus(resp))
		return resp, nil
	}
}

// upstreamCorrelationID returns the id the router bound to the request, the
// one echoed to the caller. It is recorded, never adopted.
func upstreamCorrelationID(ctx context.Context) string {
	if id := pkglog.GetCorrelationID(ctx); id != pkglog.NoCorrelationID {
		return id
	}
	return ""
}

func (b *Binder) begin(r *http.Request, cid, upstream string) requestFacts {
	f := requestFacts{
		correlationID:   cid,
		method:          r.Method,
		path:            r.URL.Path,
		userAgent:       r.UserAgent(),
		authenticatedBy: b.authBy(r),
		start:           b.now(),
		metadata: map[string]any{
			"body":   readBody(r),
			"query":  pkgrouter.MaskValues(r.URL.Query()),
			"params": pkgrouter.Params(r.Context()),
			"route":  pkgrouter.RoutePattern(r.Context()),
		},
	}
	if upstream != "" {
		f.metadata["upstreamCorrelationId"] = upstream
	}
	return f
}

func (b *Binder) complete(ctx context.Context, lc *logctx.Context, f requestFacts, status int) {
	elapsed := b.elapsed(f)

	lc.Debug(fmt.Sprintf("Finishing %s %s with status %d", f.method, f.path, status), Source, map[string]any{
		"duration":   elapsed,
		"statusCode": status,
	})

	level := entity.LevelInfo
	if status >= http.StatusBadRequest {
		level = entity.LevelWarn
	}

	p := b.payload(f, level, status, elapsed)
	p.Message = fmt.Sprintf("%s %s - %d", f.method, f.path, status)
	p.Metadata[entity.MetadataCollectedLogs] = lc.Entries()

	b.dispatch(ctx, p)
	lc.Clear()
}

func (b *Binder) fail(ctx context.Context, lc *logctx.Context, f requestFacts, err error, stack string) {
	elapsed := b.elapsed(f)
	status := pkgrouter.ErrorStatus(err)
	msg := err.Error()
	if msg == "" {
		msg = "unknown error"
	}

	lc.Error(fmt.Sprintf("Error in %s %s", f.method, f.path), Source, map[string]any{
		"error":      msg,
		"statusCode": status,
	})

	if stack == "" {
		stack = client.StackOf(err)
	}

	errMeta := map[string]any{
		"message": msg,
		"name":    fmt.Sprintf("%T", err),
	}
	if declared, ok := declaredStatus(err); ok {
		errMeta["statusCode"] = declared
	}

	p := b.payload(f, entity.LevelError, status, elapsed)
	p.Message = fmt.Sprintf("%s %s - %d - %s", f.method, f.path, status, msg)
	p.ErrorMessage = msg
	p.Stack = stack
	p.Metadata["error"] = errMeta
	p.Metadata[entity.MetadataCollectedLogs] = lc.Entries()

	b.dispatch(ctx, p)
	lc.Clear()
}

func (b *Binder) payload(f requestFacts, level entity.Level, status int, elapsed int64) entity.LogPayload {
	return entity.LogPayload{
		Level:           level,
		Context:         Source,
		CorrelationID:   f.correlationID,
		Path:            f.path,
		Method:          f.method,
		UserAgent:       f.userAgent,
		StatusCode:      status,
		AuthenticatedBy: f.authenticatedBy,
		ResponseTimeMs:  &elapsed,
		Metadata: map[string]any{
			"request": f.metadata,
		},
	}
}

func (b *Binder) dispatch(ctx context.Context, p entity.LogPayload) {
	if b.dispatcher == nil {
		return
	}
	if err := b.dispatcher.Dispatch(ctx, p); err != nil {
		slog.WarnContext(ctx, "reportlog: aggregated log not dispatched", "level", p.Level, "error", err)
	}
}

func (b *Binder) elapsed(f requestFacts) int64 {
	ms := b.now().Sub(f.start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

func declaredStatus(err error) (int, bool) {
	var sc interface{ StatusCode() int }
	if !errors.As(err, &sc) {
		return 0, false
	}
	return sc.StatusCode(), true
}

func panicError(rvr any) error {
	if err, ok := rvr.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", rvr)
}

type bodyReadCloser struct {
	io.Reader
	io.Closer
}

// readBody returns the masked request body and puts the bytes back for the
// handler. At most maxBodyBytes are buffered; a larger body is recorded as a
// placeholder since a cut document cannot be masked.
func readBody(r *http.Request) any {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	r.Body = bodyReadCloser{Reader: io.MultiReader(bytes.NewReader(raw), r.Body), Closer: r.Body}
	if err != nil || len(raw) == 0 {
		return nil
	}
	if len(raw) > maxBodyBytes {
		placeholder := map[string]any{"truncated": true, "limitBytes": maxBodyBytes}
		if r.ContentLength > 0 {
			placeholder["bytes"] = r.ContentLength
		}
		return placeholder
	}
	return pkgrouter.MaskBody(r.Header.Get("Content-Type"), raw)
}

// SkipPrefix matches requests whose path starts with any of prefixes.
func SkipPrefix(prefixes ...string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(r.URL.Path, p) {
				return true
			}
		}
		return false
	}
}

// BearerKeyID returns the key id of an "Authorization: Bearer key:secret"
// header, or "" when the header has another shape. The secret never leaves.
func BearerKeyID(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	token := strings.TrimSpace(auth[len(prefix):])
	key, _, found := strings.Cut(token, ":")
	if !found {
		return ""
	}
	return key
}

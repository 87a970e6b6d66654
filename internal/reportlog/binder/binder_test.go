package binder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/reportlog/internal/pkg/pkgerror"
	"github.com/shandysiswandi/reportlog/internal/pkg/pkglog"
	"github.com/shandysiswandi/reportlog/internal/reportlog/entity"
	"github.com/shandysiswandi/reportlog/internal/reportlog/logctx"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.UnixMilli(1_767_225_600_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingDispatcher struct {
	mu       sync.Mutex
	payloads []entity.LogPayload
	err      error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, p entity.LogPayload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads = append(d.payloads, p)
	return d.err
}

func (d *recordingDispatcher) only(t *testing.T) entity.LogPayload {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.payloads) != 1 {
		t.Fatalf("expected exactly one dispatched payload, got %d", len(d.payloads))
	}
	return d.payloads[0]
}

type staticIDs string

func (s staticIDs) Generate() string { return string(s) }

func collected(t *testing.T, p entity.LogPayload) []entity.LogEntry {
	t.Helper()
	entries, ok := p.Metadata[entity.MetadataCollectedLogs].([]entity.LogEntry)
	if !ok {
		t.Fatalf("collectedLogs has type %T", p.Metadata[entity.MetadataCollectedLogs])
	}
	return entries
}

type statusResp struct{ code int }

func (s statusResp) StatusCode() int { return s.code }

func TestInterceptSuccess(t *testing.T) {
	clock := newFakeClock()
	disp := &recordingDispatcher{}
	b := New(Dependency{Dispatcher: disp, IDs: staticIDs("r1"), Clock: clock.Now})

	var handlerCtx context.Context
	h := b.Intercept(func(ctx context.Context, r *http.Request) (any, error) {
		handlerCtx = ctx
		lc := logctx.FromContext(ctx)
		lc.Info("step 1", "orders", nil)
		clock.Advance(20 * time.Millisecond)
		lc.Debug("step 2", "orders", map[string]any{"n": 2})
		clock.Advance(30 * time.Millisecond)
		return map[string]string{"ok": "yes"}, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/orders?page=2", nil)
	req.Header.Set("User-Agent", "probe/1.0")
	resp, err := h(req.Context(), req)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if resp == nil {
		t.Fatal("expected the handler response to pass through")
	}

	p := disp.only(t)
	if p.Level != entity.LevelInfo {
		t.Fatalf("level = %s, want INFO", p.Level)
	}
	if !strings.HasSuffix(p.Message, "- 200") || p.Message != "GET /orders - 200" {
		t.Fatalf("message = %q", p.Message)
	}
	if p.CorrelationID != "r1" || p.StatusCode != 200 || p.UserAgent != "probe/1.0" {
		t.Fatalf("unexpected payload facts %+v", p)
	}
	if p.ResponseTimeMs == nil || *p.ResponseTimeMs != 50 {
		t.Fatalf("responseTimeMs = %v, want 50", p.ResponseTimeMs)
	}

	entries := collected(t, p)
	if len(entries) != 3 {
		t.Fatalf("expected 3 collected entries, got %d: %+v", len(entries), entries)
	}
	wantMsg := []string{"step 1", "step 2", "Finishing GET /orders with status 200"}
	for i, e := range entries {
		if e.Message != wantMsg[i] {
			t.Fatalf("entry %d = %q, want %q", i, e.Message, wantMsg[i])
		}
		if i > 0 && e.Timestamp < entries[i-1].Timestamp {
			t.Fatalf("entries out of order at %d", i)
		}
	}

	request, _ := p.Metadata["request"].(map[string]any)
	if query, _ := request["query"].(map[string]any); query["page"] != "2" {
		t.Fatalf("unexpected request metadata %+v", request)
	}

	if got := pkglog.GetCorrelationID(handlerCtx); got != "r1" {
		t.Fatalf("expected slog correlation id r1, got %q", got)
	}
	if n := len(logctx.FromContext(handlerCtx).Entries()); n != 0 {
		t.Fatalf("expected the context cleared after flush, got %d entries", n)
	}
}

func TestInterceptStartMarker(t *testing.T) {
	disp := &recordingDispatcher{}
	b := New(Dependency{Dispatcher: disp, StartMarker: true})

	h := b.Intercept(func(ctx context.Context, _ *http.Request) (any, error) {
		logctx.FromContext(ctx).Info("work", "", nil)
		return nil, nil
	})

	req := httptest.NewRequest(http.MethodDelete, "/items/1", nil)
	if _, err := h(req.Context(), req); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	p := disp.only(t)
	entries := collected(t, p)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "Starting DELETE /items/1" || entries[0].Level != entity.LevelDebug {
		t.Fatalf("unexpected start marker %+v", entries[0])
	}
	if p.Message != "DELETE /items/1 - 204" {
		t.Fatalf("message = %q", p.Message)
	}
}

func TestInterceptWarnOnClientErrorResponse(t *testing.T) {
	disp := &recordingDispatcher{}
	b := New(Dependency{Dispatcher: disp})

	h := b.Intercept(func(context.Context, *http.Request) (any, error) {
		return statusResp{code: http.StatusNotFound}, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	if _, err := h(req.Context(), req); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if p := disp.only(t); p.Level != entity.LevelWarn || p.StatusCode != http.StatusNotFound {
		t.Fatalf("expected WARN/404, got %s/%d", p.Level, p.StatusCode)
	}
}

func TestInterceptFailure(t *testing.T) {
	disp := &recordingDispatcher{}
	b := New(Dependency{Dispatcher: disp})

	appErr := pkgerror.NewInvalidInput(errors.New("quantity must be positive"))

	h := b.Intercept(func(ctx context.Context, _ *http.Request) (any, error) {
		logctx.FromContext(ctx).Warn("validating", "orders", nil)
		return nil, appErr
	})

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"qty":-1,"password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	_, err := h(req.Context(), req)
	if err != appErr { //nolint:errorlint // identity is the point
		t.Fatalf("expected the original error back, got %v", err)
	}

	p := disp.only(t)
	if p.Level != entity.LevelError || p.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected ERROR/422, got %s/%d", p.Level, p.StatusCode)
	}
	if p.ErrorMessage != appErr.Error() {
		t.Fatalf("errorMessage = %q, want %q", p.ErrorMessage, appErr.Error())
	}
	if p.Message != "POST /orders - 422 - quantity must be positive" {
		t.Fatalf("message = %q", p.Message)
	}
	if p.Stack == "" {
		t.Fatal("expected a stack dump")
	}

	errMeta, _ := p.Metadata["error"].(map[string]any)
	if errMeta["statusCode"] != http.StatusUnprocessableEntity || errMeta["name"] != "*pkgerror.Error" {
		t.Fatalf("unexpected error metadata %+v", errMeta)
	}

	request, _ := p.Metadata["request"].(map[string]any)
	body, _ := request["body"].(map[string]any)
	if body["password"] != "***" || body["qty"] != float64(-1) {
		t.Fatalf("unexpected masked body %+v", body)
	}

	entries := collected(t, p)
	if len(entries) != 2 || entries[0].Level != entity.LevelWarn || entries[1].Message != "Error in POST /orders" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestInterceptPlainErrorIs500(t *testing.T) {
	disp := &recordingDispatcher{}
	b := New(Dependency{Dispatcher: disp})

	h := b.Intercept(func(context.Context, *http.Request) (any, error) {
		return nil, errors.New("db down")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := h(req.Context(), req); err == nil {
		t.Fatal("expected error")
	}

	p := disp.only(t)
	if p.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", p.StatusCode)
	}
	if _, ok := p.Metadata["error"].(map[string]any)["statusCode"]; ok {
		t.Fatal("expected no declared status in error metadata")
	}
}

func TestInterceptPanicFlushesAndRepanics(t *testing.T) {
	disp := &recordingDispatcher{}
	b := New(Dependency{Dispatcher: disp})

	var lc *logctx.Context
	h := b.Intercept(func(ctx context.Context, _ *http.Request) (any, error) {
		lc = logctx.FromContext(ctx)
		lc.Info("before panic", "", nil)
		panic("boom")
	})

	func() {
		defer func() {
			if rvr := recover(); rvr != "boom" {
				t.Fatalf("expected the original panic value, got %v", rvr)
			}
		}()
		req := httptest.NewRequest(http.MethodGet, "/panic", nil)
		_, _ = h(req.Context(), req)
	}()

	p := disp.only(t)
	if p.Level != entity.LevelError || p.ErrorMessage != "panic: boom" {
		t.Fatalf("unexpected payload %s/%q", p.Level, p.ErrorMessage)
	}
	if !strings.Contains(p.Stack, "goroutine") {
		t.Fatalf("expected a goroutine stack, got %q", p.Stack)
	}
	if n := len(lc.Entries()); n != 0 {
		t.Fatalf("expected cleared context, got %d entries", n)
	}
}

func TestInterceptDispatchFailureKeepsResponse(t *testing.T) {
	disp := &recordingDispatcher{err: errors.New("bus full")}
	b := New(Dependency{Dispatcher: disp})

	h := b.Intercept(func(context.Context, *http.Request) (any, error) {
		return "done", nil
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := h(req.Context(), req)
	if err != nil || resp != "done" {
		t.Fatalf("expected response untouched, got %v, %v", resp, err)
	}
}

func TestInterceptAlwaysGeneratesCorrelationID(t *testing.T) {
	disp := &recordingDispatcher{}
	b := New(Dependency{Dispatcher: disp, IDs: staticIDs("generated")})

	var seen string
	h := b.Intercept(func(ctx context.Context, _ *http.Request) (any, error) {
		seen = pkglog.GetCorrelationID(ctx)
		return "ok", nil
	})

	const inbound = "3f2b8a4e-9c1d-4e5f-8a7b-6c5d4e3f2a1b"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := pkglog.SetCorrelationID(req.Context(), inbound)
	if _, err := h(ctx, req.WithContext(ctx)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	p := disp.only(t)
	if p.CorrelationID != "generated" || seen != "generated" {
		t.Fatalf("expected a fresh id for payload and logs, got %q / %q", p.CorrelationID, seen)
	}
	request, _ := p.Metadata["request"].(map[string]any)
	if request["upstreamCorrelationId"] != inbound {
		t.Fatalf("expected the router id recorded as upstream, got %v", request["upstreamCorrelationId"])
	}

	disp.payloads = nil
	if _, err := h(req.Context(), req); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	request, _ = disp.only(t).Metadata["request"].(map[string]any)
	if _, ok := request["upstreamCorrelationId"]; ok {
		t.Fatalf("no upstream id expected without a router id, got %v", request["upstreamCorrelationId"])
	}
}

func TestInterceptLargeBodyIsNotRecorded(t *testing.T) {
	disp := &recordingDispatcher{}
	b := New(Dependency{Dispatcher: disp})

	body := `{"password":"hunter2","pad":"` + strings.Repeat("x", 70*1024) + `"}`

	var got int
	h := b.Intercept(func(_ context.Context, r *http.Request) (any, error) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		got = len(raw)
		return "ok", nil
	})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if _, err := h(req.Context(), req); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if got != len(body) {
		t.Fatalf("handler read %d bytes, want the full %d", got, len(body))
	}

	request, _ := disp.only(t).Metadata["request"].(map[string]any)
	placeholder, ok := request["body"].(map[string]any)
	if !ok {
		t.Fatalf("expected a placeholder for the oversized body, got %T", request["body"])
	}
	if placeholder["truncated"] != true || placeholder["bytes"] != int64(len(body)) {
		t.Fatalf("unexpected placeholder %v", placeholder)
	}
	encoded, err := json.Marshal(disp.only(t))
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if strings.Contains(string(encoded), "hunter2") {
		t.Fatalf("password leaked into the aggregated payload")
	}
}

func TestConcurrentRequestsAreIsolated(t *testing.T) {
	disp := &recordingDispatcher{}
	b := New(Dependency{Dispatcher: disp})

	h := b.Intercept(func(ctx context.Context, r *http.Request) (any, error) {
		lc := logctx.FromContext(ctx)
		for i := 0; i < 20; i++ {
			lc.Info(r.URL.Path, "", nil)
		}
		return "ok", nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/r/"+string(rune('a'+i)), nil)
			_, _ = h(req.Context(), req)
		}(i)
	}
	wg.Wait()

	disp.mu.Lock()
	defer disp.mu.Unlock()
	if len(disp.payloads) != 16 {
		t.Fatalf("expected 16 payloads, got %d", len(disp.payloads))
	}
	seen := map[string]bool{}
	for _, p := range disp.payloads {
		if seen[p.CorrelationID] {
			t.Fatalf("correlation id %q shared between requests", p.CorrelationID)
		}
		seen[p.CorrelationID] = true

		entries := p.Metadata[entity.MetadataCollectedLogs].([]entity.LogEntry)
		if len(entries) != 21 {
			t.Fatalf("expected 21 entries, got %d", len(entries))
		}
		for _, e := range entries[:20] {
			if e.Message != p.Path {
				t.Fatalf("entry %q leaked into %s", e.Message, p.Path)
			}
		}
	}
}

func TestBearerKeyID(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "Bearer k1:s1", want: "k1"},
		{header: "bearer  k2:s2", want: "k2"},
		{header: "Bearer token-without-secret", want: ""},
		{header: "Basic dXNlcjpwYXNz", want: ""},
		{header: "", want: ""},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		if got := BearerKeyID(r); got != tt.want {
			t.Fatalf("BearerKeyID(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestInterceptSkip(t *testing.T) {
	disp := &recordingDispatcher{}
	b := New(Dependency{Dispatcher: disp, Skip: SkipPrefix("/reportlog/")})

	var lc *logctx.Context
	h := b.Intercept(func(ctx context.Context, _ *http.Request) (any, error) {
		lc = logctx.FromContext(ctx)
		return "ok", nil
	})

	req := httptest.NewRequest(http.MethodGet, "/reportlog/status", nil)
	if _, err := h(req.Context(), req); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if lc != nil {
		t.Fatal("expected no context for a skipped request")
	}
	if len(disp.payloads) != 0 {
		t.Fatalf("expected nothing dispatched, got %d", len(disp.payloads))
	}
}

package logctx

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/shandysiswandi/reportlog/internal/pkg/pkguid"
	"github.com/shandysiswandi/reportlog/internal/reportlog/entity"
)

type Option func(*Context)

// WithClock replaces the wall clock used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(c *Context) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSequence stamps every entry with the next value of seq.
func WithSequence(seq pkguid.NumberID) Option {
	return func(c *Context) {
		c.seq = seq
	}
}

// WithIDs replaces the generator used when Initialize gets no id.
func WithIDs(ids pkguid.StringID) Option {
	return func(c *Context) {
		if ids != nil {
			c.ids = ids
		}
	}
}

// Context is the per-request entry buffer. The zero value is unusable; build
// one with New.
type Context struct {
	mu          sync.Mutex
	id          string
	initialized bool
	entries     []entity.LogEntry
	lastTS      int64

	now func() time.Time
	seq pkguid.NumberID
	ids pkguid.StringID
}

func New(opts ...Option) *Context {
	c := &Context{
		now: time.Now,
		ids: pkguid.NewUUID(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize starts a fresh buffer under correlationID, generating a random
// UUID when it is empty. Any previous buffer is discarded.
func (c *Context) Initialize(correlationID string) string {
	if correlationID == "" {
		correlationID = c.ids.Generate()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.id = correlationID
	c.initialized = true
	c.entries = nil
	c.lastTS = 0

	return correlationID
}

// Append buffers an entry stamped with the current time. Timestamps inside one
// buffer never go backwards, even if the wall clock does. Appending to a nil or
// uninitialized Context logs a warning and drops the entry.
func (c *Context) Append(level entity.Level, message, source string, data map[string]any) {
	if c == nil {
		slog.Warn("logctx: append without an active context, entry dropped", "level", level, "message", message)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		slog.Warn("logctx: append before initialize, entry dropped", "level", level, "message", message)
		return
	}

	ts := c.now().UnixMilli()
	if ts < c.lastTS {
		ts = c.lastTS
	}
	c.lastTS = ts

	entry := entity.LogEntry{
		Timestamp: ts,
		Level:     level,
		Message:   message,
		Context:   source,
		Data:      maps.Clone(data),
	}
	if c.seq != nil {
		entry.Seq = c.seq.Generate()
	}

	c.entries = append(c.entries, entry)
}

func (c *Context) Info(message, source string, data map[string]any) {
	c.Append(entity.LevelInfo, message, source, data)
}

func (c *Context) Warn(message, source string, data map[string]any) {
	c.Append(entity.LevelWarn, message, source, data)
}

func (c *Context) Error(message, source string, data map[string]any) {
	c.Append(entity.LevelError, message, source, data)
}

func (c *Context) Debug(message, source string, data map[string]any) {
	c.Append(entity.LevelDebug, message, source, data)
}

// Entries returns a copy of the buffer in append order.
func (c *Context) Entries() []entity.LogEntry {
	if c == nil {
		return []entity.LogEntry{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]entity.LogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// CorrelationID returns the active id, or false when the Context was never
// initialized.
func (c *Context) CorrelationID() (string, bool) {
	if c == nil {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.id, c.initialized
}

// Clear drops the buffered entries and keeps the correlation id.
func (c *Context) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = nil
}

type contextKey struct{}

// WithContext attaches lc to ctx.
func WithContext(ctx context.Context, lc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, lc)
}

// FromContext returns the Context attached to ctx, or nil. The nil result is
// safe to call: appends are dropped with a warning.
func FromContext(ctx context.Context) *Context {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(contextKey{}).(*Context)
	return lc
}

// CorrelationIDFrom returns the correlation id of the Context attached to ctx.
func CorrelationIDFrom(ctx context.Context) (string, bool) {
	return FromContext(ctx).CorrelationID()
}

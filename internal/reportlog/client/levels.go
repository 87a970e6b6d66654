package client

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/shandysiswandi/reportlog/internal/reportlog/entity"
)

// DefaultSource names the origin of a payload sent without one.
const DefaultSource = "UnknownService"

// Override adjusts a payload built by the level helpers before it is sent.
type Override func(*entity.LogPayload)

func WithCorrelationID(id string) Override {
	return func(p *entity.LogPayload) { p.CorrelationID = id }
}

func WithStack(stack string) Override {
	return func(p *entity.LogPayload) { p.Stack = stack }
}

func WithAmbient(a entity.Ambient) Override {
	return func(p *entity.LogPayload) { p.Ambient = a }
}

func WithRequest(method, path, userAgent string) Override {
	return func(p *entity.LogPayload) {
		p.Method = method
		p.Path = path
		p.UserAgent = userAgent
	}
}

func WithStatusCode(code int) Override {
	return func(p *entity.LogPayload) { p.StatusCode = code }
}

func WithAuthenticatedBy(who string) Override {
	return func(p *entity.LogPayload) { p.AuthenticatedBy = who }
}

func (c *Client) Info(ctx context.Context, message, source string, metadata map[string]any, overrides ...Override) string {
	return c.Send(ctx, build(entity.LevelInfo, message, source, metadata, overrides))
}

func (c *Client) Warn(ctx context.Context, message, source string, metadata map[string]any, overrides ...Override) string {
	return c.Send(ctx, build(entity.LevelWarn, message, source, metadata, overrides))
}

func (c *Client) Debug(ctx context.Context, message, source string, metadata map[string]any, overrides ...Override) string {
	return c.Send(ctx, build(entity.LevelDebug, message, source, metadata, overrides))
}

// Error sends an ERROR payload. When err is set and no stack was given through
// an override, the stack comes from err (see StackOf) and the error text and
// type are recorded.
func (c *Client) Error(ctx context.Context, message string, err error, source string, metadata map[string]any, overrides ...Override) string {
	p := build(entity.LevelError, message, source, metadata, overrides)
	if err != nil {
		if p.Stack == "" {
			p.Stack = StackOf(err)
		}
		if p.ErrorMessage == "" {
			p.ErrorMessage = err.Error()
		}
		p.Metadata = maps.Clone(p.Metadata)
		if p.Metadata == nil {
			p.Metadata = map[string]any{}
		}
		if _, ok := p.Metadata["errorName"]; !ok {
			p.Metadata["errorName"] = fmt.Sprintf("%T", err)
		}
	}
	return c.Send(ctx, p)
}

func build(level entity.Level, message, source string, metadata map[string]any, overrides []Override) entity.LogPayload {
	if source == "" {
		source = DefaultSource
	}
	p := entity.LogPayload{
		Message:  message,
		Level:    level,
		Context:  source,
		Metadata: metadata,
	}
	for _, o := range overrides {
		o(&p)
	}
	return p
}

// StackOf returns the stack carried by err or anything it wraps (a
// Stack() string method), else the %+v rendering of err.
func StackOf(err error) string {
	if err == nil {
		return ""
	}
	var st interface{ Stack() string }
	if errors.As(err, &st) {
		if s := st.Stack(); s != "" {
			return s
		}
	}
	return fmt.Sprintf("%+v", err)
}

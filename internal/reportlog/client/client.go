package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/shandysiswandi/reportlog/internal/pkg/pkguid"
	"github.com/shandysiswandi/reportlog/internal/reportlog/entity"
	"github.com/shandysiswandi/reportlog/internal/reportlog/logctx"
	"github.com/valyala/fastjson"
)

// MaxRetries bounds the re-sends after an authentication failure. A payload is
// posted at most MaxRetries+1 times.
const MaxRetries = 2

const maxResponseBytes = 1 << 20

// Runner starts background work. *pkgroutine.Manager satisfies it.
type Runner interface {
	Go(ctx context.Context, name string, f func(ctx context.Context) error)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithRunner runs credential provisioning through r instead of a bare
// goroutine.
func WithRunner(r Runner) Option {
	return func(c *Client) {
		c.runner = r
	}
}

// WithBaseContext sets the parent context of credential provisioning.
// Cancelling it aborts an in-flight handshake, which then degrades.
func WithBaseContext(ctx context.Context) Option {
	return func(c *Client) {
		if ctx != nil {
			c.base = ctx
		}
	}
}

// WithIDs replaces the generator of ad-hoc correlation ids.
func WithIDs(ids pkguid.StringID) Option {
	return func(c *Client) {
		if ids != nil {
			c.ids = ids
		}
	}
}

// Client delivers LogPayloads to the remote logging service. It is safe for
// concurrent use; the only state shared between sends is the credential pair.
type Client struct {
	cfg    Config
	hc     *http.Client
	runner Runner
	base   context.Context
	ids    pkguid.StringID
	creds  *credentialManager
}

// New validates cfg and starts credential provisioning in the background.
// It never waits for provisioning to finish.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:  cfg,
		hc:   &http.Client{Timeout: cfg.Timeout},
		base: context.Background(),
		ids:  pkguid.NewUUID(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.creds = newCredentialManager(c.provision)
	c.creds.start(c.base, c.spawn)

	return c, nil
}

func (c *Client) spawn(ctx context.Context, f func(ctx context.Context) error) {
	if c.runner != nil {
		// The runner drops tasks whose context is already done; f must always
		// run so that waiters are released.
		c.runner.Go(context.WithoutCancel(ctx), "reportlog.provision", func(context.Context) error {
			return f(ctx)
		})
		return
	}
	go func() { _ = f(ctx) }()
}

// State returns the credential state and whether a rotation is in flight.
func (c *Client) State() (entity.CredentialState, bool) {
	return c.creds.snapshot()
}

// KeyFingerprint identifies the current key without exposing it.
func (c *Client) KeyFingerprint() string {
	return fingerprint(c.creds.current().Key)
}

// Ambient returns the environment attached to payloads that name none.
func (c *Client) Ambient() entity.Ambient {
	return c.cfg.Ambient
}

// NewCorrelationID returns a fresh correlation id. The client keeps no
// "current" id; callers carry it on their logctx.Context or payload.
func (c *Client) NewCorrelationID() string {
	return c.ids.Generate()
}

// Refresh rotates the credentials. Callers that overlap an in-flight rotation
// share its result.
func (c *Client) Refresh(ctx context.Context) (entity.Credentials, error) {
	if _, err := c.creds.wait(ctx); err != nil {
		return entity.Credentials{}, err
	}
	return c.creds.refresh(ctx, c.creds.current())
}

// Send posts payload and returns the id assigned by the remote service, or ""
// when the log could not be delivered. Failures are logged locally and never
// returned: logging must not break the caller.
func (c *Client) Send(ctx context.Context, payload entity.LogPayload) string {
	logID, err := c.send(ctx, payload)
	if err != nil {
		slog.WarnContext(ctx, "reportlog: log delivery failed",
			"correlation_id", payload.CorrelationID,
			"level", payload.Level,
			"error", err,
		)
		return ""
	}
	return logID
}

// Dispatch sends payload even if ctx is canceled afterwards, so a request
// aborted by its client still flushes its record.
func (c *Client) Dispatch(ctx context.Context, payload entity.LogPayload) error {
	if c.Send(context.WithoutCancel(ctx), payload) == "" {
		return ErrNotDelivered
	}
	return nil
}

func (c *Client) send(ctx context.Context, payload entity.LogPayload) (string, error) {
	payload = c.prepare(ctx, payload)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	creds, err := c.creds.wait(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoCredentials, err)
	}

	for attempt := 0; ; attempt++ {
		logID, err := c.postLog(ctx, creds, body)
		if err == nil {
			return logID, nil
		}
		if !isAuthFailure(err) || attempt >= MaxRetries {
			return "", err
		}

		creds, err = c.creds.refresh(ctx, creds)
		if err != nil {
			return "", fmt.Errorf("refresh credentials: %w", err)
		}
	}
}

// prepare fills the correlation id from the active logctx.Context or an
// ad-hoc id, then normalizes the payload.
func (c *Client) prepare(ctx context.Context, p entity.LogPayload) entity.LogPayload {
	if p.CorrelationID == "" {
		if id, ok := logctx.CorrelationIDFrom(ctx); ok {
			p.CorrelationID = id
		} else {
			p.CorrelationID = c.ids.Generate()
		}
	}
	return p.Normalize(c.cfg.Ambient)
}

func (c *Client) postLog(ctx context.Context, creds entity.Credentials, body []byte) (string, error) {
	var (
		reader   io.Reader = bytes.NewReader(body)
		encoding string
	)
	if c.cfg.Compress {
		compressed, err := gzipBytes(body)
		if err != nil {
			return "", err
		}
		reader = bytes.NewReader(compressed)
		encoding = "gzip"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.endpoint("/logs"), reader)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", creds.Authorization())
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}

	raw, err := c.do(req, "send log")
	if err != nil {
		return "", err
	}

	v, err := fastjson.ParseBytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode log response: %w", err)
	}
	logID := string(v.GetStringBytes("logId"))
	if logID == "" {
		return "", fmt.Errorf("decode log response: %w", ErrMissingLogID)
	}
	return logID, nil
}

func (c *Client) provision(ctx context.Context) (entity.Credentials, error) {
	body, err := json.Marshal(map[string]string{"name": c.cfg.ProjectName})
	if err != nil {
		return entity.Credentials{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.endpoint("/api-keys"), bytes.NewReader(body))
	if err != nil {
		return entity.Credentials{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req, "provision credentials")
	if err != nil {
		return entity.Credentials{}, err
	}

	v, err := fastjson.ParseBytes(raw)
	if err != nil {
		return entity.Credentials{}, fmt.Errorf("decode api-keys response: %w", err)
	}

	creds := entity.Credentials{
		Key:    string(v.GetStringBytes("data", "key")),
		Secret: string(v.GetStringBytes("data", "secret")),
	}
	if creds.Key == "" || creds.Secret == "" {
		return entity.Credentials{}, fmt.Errorf("%w: api-keys response has no key pair", ErrNoCredentials)
	}
	return creds, nil
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	start := time.Now()

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}

	slog.DebugContext(req.Context(), "reportlog: remote call",
		"op", op,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: op, Code: resp.StatusCode, Body: snippet(raw)}
	}
	return raw, nil
}

func gzipBytes(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, fmt.Errorf("gzip payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip payload: %w", err)
	}
	return buf.Bytes(), nil
}

func snippet(raw []byte) string {
	const n = 200
	if len(raw) > n {
		return string(raw[:n])
	}
	return string(raw)
}

package pkgrouter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const maxLoggedBodyBytes = 64 * 1024

//nolint:gochecknoglobals // global for fast reuse
var sensitiveKeys = map[string]struct{}{
	"password":         {},
	"new_password":     {},
	"current_password": {},
	"access_token":     {},
	"refresh_token":    {},
	"secret":           {},
	"api_key":          {},
	"x-api-key":        {},
	"authorization":    {},
	"cookie":           {},
}

func maskHeaders(headers http.Header) http.Header {
	result := headers.Clone()
	for key := range result {
		if _, found := sensitiveKeys[strings.ToLower(key)]; found {
			result.Set(key, "***")
		}
	}
	return result
}

// MaskData returns a copy of v with the values of sensitive keys replaced by
// "***", descending into nested maps and slices.
func MaskData(v any) any {
	switch val := v.(type) {
	case map[string]any:
		masked := make(map[string]any, len(val))
		for k, v2 := range val {
			if _, found := sensitiveKeys[strings.ToLower(k)]; found {
				masked[k] = "***"
			} else {
				masked[k] = MaskData(v2)
			}
		}
		return masked
	case []any:
		res := make([]any, len(val))
		for i, v2 := range val {
			res[i] = MaskData(v2)
		}
		return res
	default:
		return v
	}
}

// accessRecorder tracks what the access log needs from a response. The body
// is only kept when debug logging is on.
type accessRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	body   *bytes.Buffer
	capped bool
}

func (w *accessRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *accessRecorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if w.body != nil && !w.capped {
		if room := maxLoggedBodyBytes - w.body.Len(); len(p) > room {
			w.body.Write(p[:room])
			w.capped = true
		} else {
			w.body.Write(p)
		}
	}

	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func (w *accessRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

//nolint:err113 // it use dynamic error
func (w *accessRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return h.Hijack()
}

func (w *accessRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// MaskValues flattens url.Values for logging: single values become plain
// strings and sensitive keys are masked.
func MaskValues(values url.Values) map[string]any {
	masked := make(map[string]any, len(values))
	for k, v := range values {
		if _, found := sensitiveKeys[strings.ToLower(k)]; found {
			masked[k] = "***"
			continue
		}
		if len(v) == 1 {
			masked[k] = v[0]
		} else {
			masked[k] = v
		}
	}
	return masked
}

// MaskBody decodes a request or response body for logging. JSON and form
// bodies come back as masked structures; other UTF-8 bodies as a string capped
// at 64KiB; binary bodies and JSON that fails to parse as placeholders, since
// neither can be masked. An empty body yields nil.
func MaskBody(contentType string, body []byte) any {
	if len(body) == 0 {
		return nil
	}

	var jsonBody any
	if err := json.Unmarshal(body, &jsonBody); err == nil {
		return MaskData(jsonBody)
	}
	if strings.Contains(strings.ToLower(contentType), "json") {
		return "<malformed json body omitted>"
	}

	if strings.HasPrefix(strings.ToLower(contentType), "application/x-www-form-urlencoded") {
		values, err := url.ParseQuery(string(body))
		if err == nil {
			return MaskValues(values)
		}
	}

	if !utf8.Valid(body) {
		return "<binary body omitted>"
	}
	if len(body) > maxLoggedBodyBytes {
		return string(body[:maxLoggedBodyBytes]) + "...(truncated)"
	}
	return string(body)
}

func accessLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// middlewareLogging writes one access line per request, leveled by status.
// Headers and masked bodies are attached only when debug is enabled.
func middlewareLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		debug := slog.Default().Enabled(ctx, slog.LevelDebug)

		var reqBody []byte
		if debug && r.Body != nil && r.Body != http.NoBody {
			//nolint:errcheck // best effort for logging only
			reqBody, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(reqBody))
		}

		rec := &accessRecorder{ResponseWriter: w}
		if debug {
			rec.body = &bytes.Buffer{}
		}

		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		pattern := RoutePattern(ctx)
		if pattern == "" {
			pattern = r.URL.Path
		}

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("route", pattern),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Int("bytes", rec.bytes),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
		}
		if debug {
			var respBody any = map[string]any{"truncated": true, "bytes": rec.bytes}
			if !rec.capped {
				respBody = MaskBody(rec.Header().Get("Content-Type"), rec.body.Bytes())
			}
			attrs = append(attrs,
				slog.Any("headers", maskHeaders(r.Header)),
				slog.Any("request_body", MaskBody(r.Header.Get("Content-Type"), reqBody)),
				slog.Any("response_body", respBody),
			)
		}

		slog.LogAttrs(ctx, accessLevel(status), "http: request handled", attrs...)
	})
}

package entity

import "unicode/utf8"

const (
	MaxMessageLen         = 500
	MaxErrorMessageLen    = 500
	MaxUserAgentLen       = 500
	MaxPathLen            = 255
	MaxAuthenticatedByLen = 255
	MaxContextLen         = 100
)

// MetadataCollectedLogs is the metadata key holding the buffered entries of
// an aggregated payload.
const MetadataCollectedLogs = "collectedLogs"

// LogPayload is the document posted to the remote logs endpoint.
type LogPayload struct {
	Message         string         `json:"message"`
	Level           Level          `json:"level"`
	Context         string         `json:"context,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Stack           string         `json:"stack,omitempty"`
	Ambient         Ambient        `json:"ambient,omitempty"`
	CorrelationID   string         `json:"correlationId,omitempty"`
	Path            string         `json:"path,omitempty"`
	Method          string         `json:"method,omitempty"`
	UserAgent       string         `json:"userAgent,omitempty"`
	StatusCode      int            `json:"statusCode,omitempty"`
	AuthenticatedBy string         `json:"authenticatedBy,omitempty"`
	ResponseTimeMs  *int64         `json:"responseTimeMs,omitempty"`
	ErrorMessage    string         `json:"errorMessage,omitempty"`
}

// Normalize returns a copy ready for the wire: an unknown or empty level
// becomes INFO, an empty ambient becomes def, and bounded fields are cut to
// the limits the remote service accepts.
func (p LogPayload) Normalize(def Ambient) LogPayload {
	if !p.Level.Valid() {
		p.Level = LevelInfo
	}
	if p.Ambient == "" {
		p.Ambient = def
	}

	p.Message = truncate(p.Message, MaxMessageLen)
	p.ErrorMessage = truncate(p.ErrorMessage, MaxErrorMessageLen)
	p.UserAgent = truncate(p.UserAgent, MaxUserAgentLen)
	p.Path = truncate(p.Path, MaxPathLen)
	p.AuthenticatedBy = truncate(p.AuthenticatedBy, MaxAuthenticatedByLen)
	p.Context = truncate(p.Context, MaxContextLen)

	return p
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

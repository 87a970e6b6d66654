package entity

// LogEntry is one buffered event of a request. It is never modified after it
// has been appended.
type LogEntry struct {
	Timestamp int64          `json:"timestamp"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Context   string         `json:"context,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Seq       int64          `json:"seq,omitempty"`
}

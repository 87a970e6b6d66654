package inbound

type StatusResponse struct {
	Credentials    string `json:"credentials"`
	Refreshing     bool   `json:"refreshing"`
	KeyFingerprint string `json:"key_fingerprint,omitempty"`
	Ambient        string `json:"ambient"`
	Pending        int    `json:"pending"`
	Dropped        int64  `json:"dropped"`
}

type Delivery struct {
	CorrelationID string `json:"correlation_id"`
	LogID         string `json:"log_id,omitempty"`
	Level         string `json:"level"`
	Status        string `json:"status"`
	At            string `json:"at"`
}

type DeliveriesResponse struct {
	Deliveries []Delivery `json:"deliveries"`
	limit      int
	total      int64
}

func (r DeliveriesResponse) Meta() map[string]any {
	return map[string]any{
		"limit": r.limit,
		"total": r.total,
	}
}

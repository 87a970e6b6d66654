package usecase

import "github.com/shandysiswandi/reportlog/internal/reportlog/entity"

type StatusResult struct {
	State          entity.CredentialState
	Refreshing     bool
	KeyFingerprint string
	Ambient        entity.Ambient
	Pending        int
	Dropped        int64
}

type DeliveriesResult struct {
	Deliveries []entity.Delivery
	Limit      int
	Total      int64
}

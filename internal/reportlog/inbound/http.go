package inbound

import (
	"context"

	"github.com/shandysiswandi/reportlog/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/reportlog/internal/reportlog/entity"
	"github.com/shandysiswandi/reportlog/internal/reportlog/usecase"
)

// PathPrefix groups the endpoints of this package. Requests under it are not
// reported to the remote logging service.
const PathPrefix = "/reportlog/"

type uc interface {
	Status(ctx context.Context) (usecase.StatusResult, error)
	Deliveries(ctx context.Context, limit int) (usecase.DeliveriesResult, error)
	Delivery(ctx context.Context, correlationID string) (entity.Delivery, error)
}

func RegisterHTTPEndpoint(r *pkgrouter.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET(PathPrefix+"status", end.Status)
	r.GET(PathPrefix+"deliveries", end.Deliveries) // ?limit=
	r.GET(PathPrefix+"deliveries/:correlation_id", end.Delivery)
}

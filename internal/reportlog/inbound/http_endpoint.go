package inbound

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/shandysiswandi/reportlog/internal/pkg/pkgerror"
	"github.com/shandysiswandi/reportlog/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/reportlog/internal/reportlog/entity"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) Status(ctx context.Context, _ *http.Request) (any, error) {
	result, err := h.uc.Status(ctx)
	if err != nil {
		return nil, err
	}

	return StatusResponse{
		Credentials:    string(result.State),
		Refreshing:     result.Refreshing,
		KeyFingerprint: result.KeyFingerprint,
		Ambient:        string(result.Ambient),
		Pending:        result.Pending,
		Dropped:        result.Dropped,
	}, nil
}

func (h *HTTPEndpoint) Deliveries(ctx context.Context, r *http.Request) (any, error) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		return nil, err
	}

	result, err := h.uc.Deliveries(ctx, limit)
	if err != nil {
		return nil, err
	}

	items := make([]Delivery, 0, len(result.Deliveries))
	for _, d := range result.Deliveries {
		items = append(items, toHTTPDelivery(d))
	}

	return DeliveriesResponse{
		Deliveries: items,
		limit:      result.Limit,
		total:      result.Total,
	}, nil
}

func (h *HTTPEndpoint) Delivery(ctx context.Context, _ *http.Request) (any, error) {
	d, err := h.uc.Delivery(ctx, pkgrouter.GetParam(ctx, "correlation_id"))
	if err != nil {
		return nil, err
	}

	return toHTTPDelivery(d), nil
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultLimit, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, pkgerror.NewInvalidInput(errors.New("invalid limit"))
	}

	return min(value, maxLimit), nil
}

func toHTTPDelivery(d entity.Delivery) Delivery {
	return Delivery{
		CorrelationID: d.CorrelationID,
		LogID:         d.LogID,
		Level:         string(d.Level),
		Status:        string(d.Status),
		At:            d.At.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

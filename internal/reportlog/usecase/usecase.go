package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/shandysiswandi/reportlog/internal/pkg/pkgerror"
	"github.com/shandysiswandi/reportlog/internal/reportlog/entity"
)

type Ledger interface {
	List(ctx context.Context, limit int) ([]entity.Delivery, int64, error)
	Find(ctx context.Context, correlationID string) (entity.Delivery, error)
}

type Credentials interface {
	State() (entity.CredentialState, bool)
	KeyFingerprint() string
	Ambient() entity.Ambient
}

type Queue interface {
	Pending() int
	Dropped() int64
}

type Dependency struct {
	Ledger      Ledger
	Credentials Credentials
	Queue       Queue
}

type Usecase struct {
	ledger Ledger
	creds  Credentials
	queue  Queue
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		ledger: dep.Ledger,
		creds:  dep.Credentials,
		queue:  dep.Queue,
	}
}

func (u *Usecase) Status(ctx context.Context) (StatusResult, error) {
	if u.creds == nil {
		return StatusResult{}, pkgerror.NewServer(errors.New("missing dependency"))
	}

	state, refreshing := u.creds.State()
	res := StatusResult{
		State:          state,
		Refreshing:     refreshing,
		KeyFingerprint: u.creds.KeyFingerprint(),
		Ambient:        u.creds.Ambient(),
	}
	if u.queue != nil {
		res.Pending = u.queue.Pending()
		res.Dropped = u.queue.Dropped()
	}

	return res, nil
}

func (u *Usecase) Deliveries(ctx context.Context, limit int) (DeliveriesResult, error) {
	if limit < 1 {
		return DeliveriesResult{}, pkgerror.NewInvalidInput(errors.New("invalid limit"))
	}

	items, total, err := u.ledger.List(ctx, limit)
	if err != nil {
		return DeliveriesResult{}, normalizeErr(err)
	}

	return DeliveriesResult{
		Deliveries: items,
		Limit:      limit,
		Total:      total,
	}, nil
}

func (u *Usecase) Delivery(ctx context.Context, correlationID string) (entity.Delivery, error) {
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		return entity.Delivery{}, pkgerror.NewInvalidInput(errors.New("correlation_id is required"))
	}

	d, err := u.ledger.Find(ctx, correlationID)
	if err != nil {
		return entity.Delivery{}, mapStoreErr(err)
	}

	return d, nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, pkgerror.ErrNotFound) {
		return pkgerror.NewBusiness("delivery not found", pkgerror.CodeNotFound)
	}
	return normalizeErr(err)
}

func normalizeErr(err error) error {
	var perr *pkgerror.Error
	if errors.As(err, &perr) {
		return perr
	}
	return pkgerror.NewServer(err)
}

package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shandysiswandi/reportlog/internal/pkg/pkglog"
	"github.com/shandysiswandi/reportlog/internal/reportlog/entity"
)

// Sender delivers one payload and returns the remote log id, "" on failure.
type Sender interface {
	Send(ctx context.Context, payload entity.LogPayload) string
}

// Recorder keeps the outcome of each delivery.
type Recorder interface {
	Record(ctx context.Context, d entity.Delivery) error
}

type ConsumerConfig struct {
	Workers int
	Clock   func() time.Time
}

// DeliveryConsumer drains the bus with a fixed pool of workers. Delivery is
// best effort: the client already retries authentication failures, so a
// failed payload is recorded and dropped.
type DeliveryConsumer struct {
	bus      *Bus
	sender   Sender
	recorder Recorder
	workers  int
	now      func() time.Time
	wg       sync.WaitGroup
}

func NewDeliveryConsumer(bus *Bus, sender Sender, recorder Recorder, cfg ConsumerConfig) *DeliveryConsumer {
	workers := cfg.Workers
	if workers < 1 {
		workers = 4
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &DeliveryConsumer{
		bus:      bus,
		sender:   sender,
		recorder: recorder,
		workers:  workers,
		now:      now,
	}
}

func (c *DeliveryConsumer) Start() {
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
}

// Stop closes the bus and waits for the queued payloads to be delivered, or
// for ctx to end.
func (c *DeliveryConsumer) Stop(ctx context.Context) error {
	if c.bus != nil {
		c.bus.Close()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *DeliveryConsumer) worker() {
	defer c.wg.Done()

	for payload := range c.bus.Subscribe() {
		c.deliver(payload)
	}
}

func (c *DeliveryConsumer) deliver(payload entity.LogPayload) {
	if c.sender == nil {
		return
	}

	ctx := pkglog.SetCorrelationID(context.Background(), payload.CorrelationID)

	logID := c.sender.Send(ctx, payload)
	status := entity.DeliveryDelivered
	if logID == "" {
		status = entity.DeliveryFailed
	}

	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, entity.Delivery{
		CorrelationID: payload.CorrelationID,
		LogID:         logID,
		Level:         payload.Level,
		Status:        status,
		At:            c.now(),
	}); err != nil {
		slog.WarnContext(ctx, "reportlog: failed to record delivery", "error", err)
	}
}

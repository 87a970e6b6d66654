package reportlog

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/reportlog/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/reportlog/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/reportlog/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/reportlog/internal/pkg/pkguid"
	"github.com/shandysiswandi/reportlog/internal/reportlog/binder"
	"github.com/shandysiswandi/reportlog/internal/reportlog/client"
	"github.com/shandysiswandi/reportlog/internal/reportlog/entity"
	"github.com/shandysiswandi/reportlog/internal/reportlog/event"
	"github.com/shandysiswandi/reportlog/internal/reportlog/inbound"
	"github.com/shandysiswandi/reportlog/internal/reportlog/store"
	"github.com/shandysiswandi/reportlog/internal/reportlog/usecase"
)

type Dependency struct {
	Config     pkgconfig.Config
	Goroutine  *pkgroutine.Manager
	Router     *pkgrouter.Router
	Context    context.Context
	ID         pkguid.StringID
	Sequence   pkguid.NumberID
	HTTPClient *http.Client
}

// New builds the delivery client, the asynchronous delivery pipeline and the
// request binder, installs the binder on every endpoint of dep.Router and
// registers the module's own endpoints. The returned func drains the pipeline.
func New(dep Dependency) (func(context.Context) error, error) {
	if dep.ID == nil {
		dep.ID = pkguid.NewUUID()
	}

	opts := []client.Option{
		client.WithIDs(dep.ID),
		client.WithHTTPClient(dep.HTTPClient),
	}
	if dep.Goroutine != nil {
		opts = append(opts, client.WithRunner(dep.Goroutine))
	}
	if dep.Context != nil {
		opts = append(opts, client.WithBaseContext(dep.Context))
	}

	cl, err := client.New(ClientConfig(dep.Config), opts...)
	if err != nil {
		return nil, err
	}

	ledger := store.NewInMemoryLedger(int(dep.Config.GetInt("reportlog.ledger.capacity")))
	bus := event.NewBus(int(dep.Config.GetInt("reportlog.bus.buffer")))
	consumer := event.NewDeliveryConsumer(bus, cl, ledger, event.ConsumerConfig{
		Workers: int(dep.Config.GetInt("reportlog.bus.workers")),
	})
	consumer.Start()

	b := binder.New(binder.Dependency{
		Dispatcher:  bus,
		IDs:         dep.ID,
		Sequence:    dep.Sequence,
		Skip:        binder.SkipPrefix(inbound.PathPrefix),
		StartMarker: dep.Config.GetBool("reportlog.start_marker"),
	})
	dep.Router.Intercept(b.Intercept)

	uc := usecase.New(usecase.Dependency{
		Ledger:      ledger,
		Credentials: cl,
		Queue:       bus,
	})
	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return consumer.Stop, nil
}

// ClientConfig reads the delivery client settings, falling back to
// client.DefaultConfig for anything unset.
func ClientConfig(cfg pkgconfig.Config) client.Config {
	out := client.DefaultConfig()

	if v := cfg.GetString("reportlog.api_url"); v != "" {
		out.APIURL = v
	}
	if v := cfg.GetString("reportlog.project_name"); v != "" {
		out.ProjectName = v
	}
	if v := cfg.GetString("reportlog.ambient"); v != "" {
		out.Ambient = entity.Ambient(v)
	}
	if cfg.IsSet("reportlog.timeout") {
		out.Timeout = cfg.GetDuration("reportlog.timeout")
	}
	if cfg.IsSet("reportlog.retry_attempts") {
		out.RetryAttempts = int(cfg.GetInt("reportlog.retry_attempts"))
	}
	if cfg.IsSet("reportlog.retry_delay") {
		out.RetryDelay = cfg.GetDuration("reportlog.retry_delay")
	}
	out.Compress = cfg.GetBool("reportlog.compress")

	return out
}

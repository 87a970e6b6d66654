package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shandysiswandi/reportlog/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/reportlog/internal/pkg/pkglog"
	"github.com/shandysiswandi/reportlog/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/reportlog/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/reportlog/internal/pkg/pkguid"
)

// Options are the process-level inputs of New.
type Options struct {
	// ConfigPath overrides the config file location.
	ConfigPath string
	LogLevel   slog.Level
}

type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options

	// configuration
	config pkgconfig.Config

	// libraries
	uuid      pkguid.StringID
	sequence  pkguid.NumberID
	goroutine *pkgroutine.Manager

	// server
	router     *pkgrouter.Router
	httpServer *http.Server

	// closers run in registration order on Stop
	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

func New(opts Options) *App {
	pkglog.InitLogging(pkglog.Options{Service: "reportlog", Level: opts.LogLevel})

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
		opts:   opts,
	}

	app.initConfig()
	app.initLibraries()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}

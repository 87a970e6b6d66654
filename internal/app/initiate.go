package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/rs/cors"
	"github.com/shandysiswandi/reportlog/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/reportlog/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/reportlog/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/reportlog/internal/pkg/pkguid"
)

func (a *App) initConfig() {
	path := a.opts.ConfigPath
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := pkgconfig.NewViper(path,
		pkgconfig.WithEnv("reportlog.api_url", "LOGS_API_URL"),
		pkgconfig.WithEnv("reportlog.project_name", "LOGS_PROJECT_NAME"),
		pkgconfig.WithEnv("reportlog.ambient", "LOGS_AMBIENT", "NODE_ENV"),
		pkgconfig.WithEnv("reportlog.timeout", "LOGS_TIMEOUT"),
		pkgconfig.WithEnv("reportlog.retry_attempts", "LOGS_RETRY_ATTEMPTS"),
		pkgconfig.WithEnv("reportlog.retry_delay", "LOGS_RETRY_DELAY"),
		pkgconfig.WithDefault("server.address.http", ":8080"),
		pkgconfig.WithDefault("modules.reportlog.enabled", true),
	)
	if err != nil {
		slog.Error("failed to init config", "path", path, "error", err)
		os.Exit(1)
	}

	if tz := cfg.GetString("tz"); tz != "" {
		//nolint:errcheck,gosec // ignore error
		os.Setenv("TZ", tz)
	}

	a.config = cfg
}

func (a *App) initLibraries() {
	a.goroutine = pkgroutine.NewManager(100)
	a.uuid = pkguid.NewUUID()

	sf, err := pkguid.NewSnowflake()
	if err != nil {
		slog.Error("failed to init snowflake", "error", err)
		os.Exit(1)
	}
	a.sequence = sf
}

func (a *App) initHTTPServer() {
	a.router = pkgrouter.NewRouter(a.uuid)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{pkgrouter.HeaderCorrelationID},
		AllowCredentials: true,
	})

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("server.address.http"),
		Handler:           corsHandler.Handler(a.router),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (a *App) addCloser(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// initClosers registers the closers shared by every module. Module closers
// are registered earlier by initModules so they drain before config closes.
func (a *App) initClosers() {
	a.addCloser("Config", func(context.Context) error {
		return a.config.Close()
	})
}

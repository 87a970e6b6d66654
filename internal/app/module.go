package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/reportlog/internal/reportlog"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.reportlog.enabled") {
		closer, err := reportlog.New(reportlog.Dependency{
			Config:    a.config,
			Router:    a.router,
			Goroutine: a.goroutine,
			Context:   a.ctx,
			ID:        a.uuid,
			Sequence:  a.sequence,
		})
		if err != nil {
			slog.Error("failed to init module reportlog", "error", err)
			os.Exit(1)
		}
		if closer != nil {
			a.addCloser("Reportlog", closer)
		}
	}
}

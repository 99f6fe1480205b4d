package app

import (
	"context"
	"log/slog"
	"os"

	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.spectral.enabled") {
		closer, err := spectral.New(spectral.Dependency{
			Config:    a.config,
			Router:    a.router,
			Goroutine: a.goroutine,
			Context:   a.ctx,
			ID:        a.uuid,
		})
		if err != nil {
			slog.Error("failed to init module spectral", "error", err)
			os.Exit(1)
		}
		if closer != nil {
			if a.closerFn == nil {
				a.closerFn = map[string]func(context.Context) error{}
			}
			a.closerFn["Spectral"] = closer
		}
	}
}

package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/kplor/internal/shared"
	"github.com/desertthunder/kplor/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive catalog browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel().String())
	r.SetLogger(fileLogger)

	if err := r.open(ctx); err != nil {
		return err
	}

	uploads, err := r.uploader(ctx)
	if err != nil {
		r.logger.Warn("uploads disabled", "error", err)
	}

	deps := ui.Deps{
		Catalog:   r.catalog,
		Session:   r.session,
		Pipeline:  r.pipeline,
		Uploads:   uploads,
		Notices:   r.notices,
		ShareLink: cmd.String("link"),
	}
	p := tea.NewProgram(ui.NewModel(ctx, deps), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/machinemessiah/tagify-sub000/internal/shared"
	"github.com/machinemessiah/tagify-sub000/internal/ui"
)

// TUI launches the interactive terminal UI for browsing, previewing and
// syncing smart playlists.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.remote == nil {
		return fmt.Errorf("%w: authenticate first to sync from the TUI", shared.ErrServiceUnavailable)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/tagify-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	if err := r.openStack(); err != nil {
		return err
	}

	model := ui.NewModel(r.engine)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

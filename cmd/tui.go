package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/quietfall/tonearm/internal/shared"
	"github.com/quietfall/tonearm/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal player.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/tonearm-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.logger = fileLogger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.engine.Start(ctx)

	model := ui.NewModel(ctx, r.engine)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

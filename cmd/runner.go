package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/quietfall/tonearm/internal/app"
	"github.com/quietfall/tonearm/internal/device"
	"github.com/quietfall/tonearm/internal/notify"
	"github.com/quietfall/tonearm/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
	engine *app.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer

	// Engine overrides the engine built from Config, used by tests.
	Engine *app.Engine
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
		engine: opts.Engine,
	}
	if r.engine == nil {
		r.engine = app.New(app.Opts{
			Config:   opts.Config,
			Device:   device.NewSpeaker(opts.Logger),
			Autoplay: true,
			Logger:   opts.Logger,
		})
	}
	r.engine.SetNoticeSink(r.printNotice)
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, addCommand, exportCommand, analyzeCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// printNotice renders an engine notice on the CLI output.
func (r *Runner) printNotice(n notify.Notice) {
	prefix := "•"
	switch n.Level {
	case notify.LevelSuccess:
		prefix = "✓"
	case notify.LevelError:
		prefix = "✗"
	}
	r.writePlain("%s %s\n", prefix, n.Message)
}

// establishSession signs in or enters guest mode based on the command flags.
func (r *Runner) establishSession(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("guest") {
		return r.engine.EnterGuest()
	}

	email := cmd.String("email")
	password := cmd.String("password")
	if email == "" || password == "" {
		return fmt.Errorf("%w: pass --email and --password, or --guest", shared.ErrNotAuthenticated)
	}
	return r.engine.SignIn(ctx, email, password)
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

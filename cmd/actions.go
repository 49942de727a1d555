package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/quietfall/tonearm/internal/devserver"
	"github.com/quietfall/tonearm/internal/formatter"
	"github.com/quietfall/tonearm/internal/playback"
	"github.com/quietfall/tonearm/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes the starter configuration file.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.writePlainln("Wrote %s. Fill in the [backend] section to enable sync.", path)
	return nil
}

// AuthSignUp registers a new account on the backend.
func (r *Runner) AuthSignUp(ctx context.Context, cmd *cli.Command) error {
	if err := r.engine.SignUp(ctx, cmd.String("email"), cmd.String("password")); err != nil {
		return err
	}
	sess := r.engine.Sessions.Current()
	r.writePlainln("Registered and signed in as %s.", sess.User.Email)
	return nil
}

// AuthLogin verifies credentials against the backend.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.engine.SignIn(ctx, cmd.String("email"), cmd.String("password")); err != nil {
		return err
	}
	sess := r.engine.Sessions.Current()
	r.writePlainln("Signed in as %s (%s).", sess.User.Username, sess.User.ID)
	return nil
}

// AuthProvider runs the browser OAuth flow for the named provider.
func (r *Runner) AuthProvider(ctx context.Context, cmd *cli.Command) error {
	provider := cmd.StringArg("name")
	if provider == "" {
		return fmt.Errorf("%w: provider name is required", shared.ErrInvalidArgument)
	}
	if err := r.engine.SignInWithProvider(ctx, provider); err != nil {
		return err
	}
	sess := r.engine.Sessions.Current()
	r.writePlainln("Signed in as %s via %s.", sess.User.Email, provider)
	return nil
}

// Add uploads a file into the library, falling back to local playback when the
// backend rejects it.
func (r *Runner) Add(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: audio file path is required", shared.ErrInvalidArgument)
	}

	if err := r.establishSession(ctx, cmd); err != nil {
		return err
	}
	r.engine.Start(ctx)

	song, err := r.engine.AddTrack(ctx, path)
	if err != nil {
		return err
	}

	if !cmd.Bool("play") {
		r.engine.Player.Clear()
		return nil
	}

	r.writePlain("Playing %s — %s. Press ctrl+c to stop.\n", song.Title, song.DisplayArtist())
	return r.waitForPlayback(ctx)
}

// waitForPlayback blocks until the current track finishes or fails.
func (r *Runner) waitForPlayback(ctx context.Context) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			state := r.engine.Player.State()
			switch state.Status {
			case playback.StatusEnded, playback.StatusIdle:
				return nil
			case playback.StatusErrored:
				return shared.ErrDevice
			}
		}
	}
}

// Export writes the library track list in the requested format.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	if err := r.establishSession(ctx, cmd); err != nil {
		return err
	}

	songs, err := r.engine.FetchSongs(ctx)
	if err != nil {
		return err
	}

	var data []byte
	switch cmd.String("format") {
	case "csv":
		data, err = formatter.ExportToCSV(songs)
	case "md", "markdown":
		data, err = formatter.ExportToMarkdown("Library", songs)
	case "txt", "text":
		data = formatter.ExportToText(songs)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, cmd.String("format"))
	}
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		r.writePlainln("Wrote %d tracks to %s.", len(songs), path)
		return nil
	}

	_, err = r.output.Write(data)
	return err
}

// Analyze prints a style analysis for a track title.
func (r *Runner) Analyze(ctx context.Context, cmd *cli.Command) error {
	title := cmd.StringArg("title")
	if title == "" {
		return fmt.Errorf("%w: track title is required", shared.ErrInvalidArgument)
	}

	text := r.engine.Analyzer.Analyze(ctx, title)
	return r.writePlainln("%s", text)
}

// Serve runs the local development backend until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	srv, err := devserver.Open(r.config, r.logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	addr := cmd.String("addr")
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	}
	return srv.ListenAndServe(ctx, addr)
}

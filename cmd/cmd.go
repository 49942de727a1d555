// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// sessionFlags are shared by commands that need an identity.
func sessionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "email",
			Usage: "Account email",
		},
		&cli.StringFlag{
			Name:  "password",
			Usage: "Account password",
		},
		&cli.BoolFlag{
			Name:  "guest",
			Usage: "Use guest mode (local only, nothing is synced)",
		},
	}
}

// setupCommand writes the starter configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Write a starter config.toml",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles account operations against the backend.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the backend account",
		Commands: []*cli.Command{
			{
				Name:  "signup",
				Usage: "Register a new account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
				},
				Action: r.AuthSignUp,
			},
			{
				Name:  "login",
				Usage: "Verify credentials against the backend",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "provider",
				Usage: "Sign in through an OAuth provider (opens a browser)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.AuthProvider,
			},
		},
	}
}

// addCommand uploads a local audio file into the library.
func addCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "add",
		Aliases: []string{"upload"},
		Usage:   "Add an audio file to the library",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "file"},
		},
		Flags: append(sessionFlags(),
			&cli.BoolFlag{
				Name:  "play",
				Usage: "Play the track after adding it",
			},
		),
		Action: r.Add,
	}
}

// exportCommand writes the library to CSV, Markdown or plain text.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the library track list",
		Flags: append(sessionFlags(),
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: csv, md or txt",
				Value: "txt",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (defaults to stdout)",
			},
		),
		Action: r.Export,
	}
}

// analyzeCommand prints a style analysis for a track title.
func analyzeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Describe the likely style of a track title",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "title"},
		},
		Action: r.Analyze,
	}
}

// serveCommand runs the local development backend.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a local development backend (auth, tracks, storage)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for the interactive player.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "play",
		Aliases: []string{"tui", "ui"},
		Usage:   "Launch the interactive player",
		Action:  r.TUI,
	}
}

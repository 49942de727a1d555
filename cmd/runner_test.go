package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quietfall/tonearm/internal/app"
	"github.com/quietfall/tonearm/internal/models"
	"github.com/quietfall/tonearm/internal/playback"
	"github.com/quietfall/tonearm/internal/remote"
	"github.com/quietfall/tonearm/internal/shared"
	tu "github.com/quietfall/tonearm/internal/testing"
	"github.com/urfave/cli/v3"
)

// nullDevice accepts every call and emits nothing.
type nullDevice struct {
	events chan playback.Event
}

func newNullDevice() *nullDevice {
	return &nullDevice{events: make(chan playback.Event, 1)}
}

func (d *nullDevice) Bind(songID, sourceURL string) error { return nil }
func (d *nullDevice) Play() error                         { return nil }
func (d *nullDevice) Pause()                              {}
func (d *nullDevice) Seek(seconds float64)                {}
func (d *nullDevice) SetVolume(v float64)                 {}
func (d *nullDevice) Stop()                               {}
func (d *nullDevice) Events() <-chan playback.Event       { return d.events }

// nullStore satisfies [remote.Store] with an always-empty backend.
type nullStore struct{}

func (nullStore) UploadBinary(ctx context.Context, ownerID, filename string, r io.Reader) (remote.BinaryLocation, error) {
	return remote.BinaryLocation{}, shared.ErrBackendNotConfigured
}

func (nullStore) InsertRecord(ctx context.Context, rec models.TrackRecord) (models.TrackRecord, error) {
	return models.TrackRecord{}, shared.ErrBackendNotConfigured
}

func (nullStore) DeleteBinary(ctx context.Context, loc remote.BinaryLocation) error { return nil }

func (nullStore) ListRecords(ctx context.Context, ownerID string) ([]models.TrackRecord, error) {
	return nil, nil
}

func (nullStore) ObserveAuth(ctx context.Context) <-chan remote.AuthState {
	ch := make(chan remote.AuthState)
	close(ch)
	return ch
}

func (nullStore) SignIn(ctx context.Context, email, password string) (models.User, error) {
	return models.User{}, shared.ErrBackendNotConfigured
}

func (nullStore) SignUp(ctx context.Context, email, password string) (models.User, error) {
	return models.User{}, shared.ErrBackendNotConfigured
}

func (nullStore) SignInWithProvider(ctx context.Context, provider string) (models.User, error) {
	return models.User{}, shared.ErrBackendNotConfigured
}

func (nullStore) SignOut(ctx context.Context) error { return nil }

func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()
	output := &bytes.Buffer{}
	engine := app.New(app.Opts{
		Config: shared.DefaultConfig(),
		Device: newNullDevice(),
		Remote: nullStore{},
	})
	runner := NewRunner(RunnerOpts{
		Config: shared.DefaultConfig(),
		Output: output,
		Engine: engine,
	})
	return runner, output
}

func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	cmd := &cli.Command{Name: "tonearm", Commands: r.register()}
	return cmd.Run(context.Background(), append([]string{"tonearm"}, args...))
}

func TestNewRunner(t *testing.T) {
	t.Run("with all dependencies provided", func(t *testing.T) {
		config := shared.DefaultConfig()
		logger := shared.NewLogger(nil)
		output := &bytes.Buffer{}

		runner := NewRunner(RunnerOpts{Config: config, Logger: logger, Output: output})

		if runner.config != config {
			t.Error("expected config to be set")
		}
		if runner.logger != logger {
			t.Error("expected logger to be set")
		}
		if runner.output != output {
			t.Error("expected output to be set")
		}
		if runner.engine == nil {
			t.Error("expected an engine to be assembled")
		}
	})

	t.Run("with nil config uses defaults", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if runner.config == nil {
			t.Error("expected default config to be set")
		}
		if runner.output != os.Stdout {
			t.Error("expected output to default to os.Stdout")
		}
	})
}

func TestSetupCommand(t *testing.T) {
	runner, output := newTestRunner(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := run(t, runner, "setup", "-c", path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not written: %v", err)
	}
	if !strings.Contains(output.String(), "Wrote") {
		t.Errorf("expected confirmation output, got %q", output.String())
	}

	// A second run must refuse to clobber the file.
	if err := run(t, runner, "setup", "-c", path); err == nil {
		t.Error("expected an error when the config file already exists")
	}
}

func TestAddCommand(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		runner, _ := newTestRunner(t)
		file := writeAudioFile(t)

		err := run(t, runner, "add", file)
		if err == nil {
			t.Fatal("expected an error without --guest or credentials")
		}
	})

	t.Run("guest add is local", func(t *testing.T) {
		runner, output := newTestRunner(t)
		file := writeAudioFile(t)

		if err := run(t, runner, "add", "--guest", file); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(output.String(), "local library") {
			t.Errorf("expected local-library notice, got %q", output.String())
		}
	})
}

func TestAnalyzeCommand(t *testing.T) {
	runner, output := newTestRunner(t)

	if err := run(t, runner, "analyze", "Some Track"); err != nil {
		t.Fatal(err)
	}
	// No API key configured in the default config.
	if !strings.Contains(output.String(), "missing API key") {
		t.Errorf("expected the missing-key message, got %q", output.String())
	}
}

func TestExportCommand(t *testing.T) {
	runner, output := newTestRunner(t)
	file := writeAudioFile(t)

	if err := run(t, runner, "add", "--guest", file); err != nil {
		t.Fatal(err)
	}
	output.Reset()

	if err := run(t, runner, "export", "--guest", "--format", "txt"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(output.String(), "Demo") {
		t.Errorf("export should list the added track, got %q", output.String())
	}

	if err := run(t, runner, "export", "--guest", "--format", "bogus"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestWriteFailures(t *testing.T) {
	engine := app.New(app.Opts{
		Config: shared.DefaultConfig(),
		Device: newNullDevice(),
		Remote: nullStore{},
	})
	runner := NewRunner(RunnerOpts{
		Config: shared.DefaultConfig(),
		Output: &tu.FWriter{},
		Engine: engine,
	})

	if err := run(t, runner, "analyze", "Some Track"); err == nil {
		t.Error("expected an error when the output writer fails")
	}
}

func writeAudioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Demo.mp3")
	if err := os.WriteFile(path, []byte("not audio"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

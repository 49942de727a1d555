// package app wires the session, library, upload and playback components into
// one engine the CLI and the TUI drive.
package app

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/quietfall/tonearm/internal/analysis"
	"github.com/quietfall/tonearm/internal/library"
	"github.com/quietfall/tonearm/internal/metadata"
	"github.com/quietfall/tonearm/internal/models"
	"github.com/quietfall/tonearm/internal/notify"
	"github.com/quietfall/tonearm/internal/playback"
	"github.com/quietfall/tonearm/internal/remote"
	"github.com/quietfall/tonearm/internal/session"
	"github.com/quietfall/tonearm/internal/shared"
	"github.com/quietfall/tonearm/internal/upload"
)

// Engine is the assembled player core.
//
// Components are exported so the TUI can read their state directly; all
// mutations still go through the Engine methods so the session, library and
// playback stay consistent with each other.
type Engine struct {
	Sessions *session.Manager
	Library  *library.Store
	Player   *playback.Controller
	Analyzer analysis.Analyzer

	remote   remote.Store
	uploads  *upload.Pipeline
	notices  *notify.Router
	logger   *log.Logger
	autoplay bool

	mu         sync.Mutex
	noticeSink func(notify.Notice)
	onUpdate   func()
}

// Opts configures an Engine.
type Opts struct {
	Config *shared.Config
	Device playback.Device

	// Remote overrides the backend client built from Config. Used by tests
	// and by the dev server's in-process client.
	Remote remote.Store

	// NoticeSink receives user-visible notices. Nil discards them.
	NoticeSink func(notify.Notice)

	// Autoplay starts playback as soon as an uploaded track is loaded.
	Autoplay bool

	Logger *log.Logger
}

// New assembles an Engine. It performs no I/O; call Start to begin following
// the backend auth stream and consuming device events.
func New(opts Opts) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = shared.DefaultConfig()
	}

	store := opts.Remote
	if store == nil {
		store = remote.NewClient(remote.ClientOpts{
			BaseURL: cfg.Backend.URL,
			AnonKey: cfg.Backend.AnonKey,
			Bucket:  cfg.Backend.Bucket,
			Logger:  logger,
		})
	}

	e := &Engine{
		Sessions:   session.NewManager(store, logger),
		Library:    library.NewStore(store, logger),
		Player:     playback.NewController(opts.Device, cfg.Player.Volume, logger),
		Analyzer:   analysis.NewClient(cfg.Analysis, nil, logger),
		remote:     store,
		uploads:    upload.NewPipeline(store, metadata.NewTagExtractor(logger), logger),
		logger:     logger,
		autoplay:   opts.Autoplay,
		noticeSink: opts.NoticeSink,
	}
	e.notices = notify.NewRouter(e.publish)

	// A song that leaves the library must not keep playing.
	e.Library.SetOnChange(func() {
		e.Player.EvictMissing(e.Library.Contains)
		e.notifyUpdate()
	})
	e.Player.SetOnChange(func(playback.State) {
		e.notifyUpdate()
	})

	return e
}

// SetNoticeSink replaces the notice destination, e.g. when a TUI takes over
// presentation from the CLI.
func (e *Engine) SetNoticeSink(sink func(notify.Notice)) {
	e.mu.Lock()
	e.noticeSink = sink
	e.mu.Unlock()
}

// SetOnUpdate registers a callback fired after library or playback changes.
func (e *Engine) SetOnUpdate(fn func()) {
	e.mu.Lock()
	e.onUpdate = fn
	e.mu.Unlock()
}

func (e *Engine) publish(n notify.Notice) {
	e.mu.Lock()
	sink := e.noticeSink
	e.mu.Unlock()
	if sink != nil {
		sink(n)
	}
}

func (e *Engine) notifyUpdate() {
	e.mu.Lock()
	fn := e.onUpdate
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Start begins the engine's background work: restoring any persisted identity,
// keeping the library reconciled with the session, and consuming device
// events. It returns once the streams are being consumed.
func (e *Engine) Start(ctx context.Context) {
	e.Player.Run(ctx)

	sessions := e.Sessions.Observe(ctx)
	go func() {
		for sess := range sessions {
			// Locally initiated transitions reconcile synchronously; this
			// stream only has to catch up on external ones (cold start
			// restore, session expiry).
			if e.Library.OwnerID() == sess.OwnerID() {
				continue
			}
			e.Library.Reconcile(ctx, sess)
		}
	}()

	e.Sessions.Start(ctx)
}

// AddTrack runs the upload pipeline for path under the active session, inserts
// the resulting song into the library, loads it into the player and publishes
// the outcome notice.
func (e *Engine) AddTrack(ctx context.Context, path string) (models.Song, error) {
	sess := e.Sessions.Current()

	result, err := e.uploads.Upload(ctx, path, sess)
	if err != nil {
		e.notices.Publish(notify.ForError(err))
		return models.Song{}, err
	}

	e.Library.Insert(result.Song)
	e.notices.Publish(notify.ForUpload(result.Synced, result.SyncErr))

	if err := e.Player.Load(result.Song); err != nil {
		e.notices.Publish(notify.ForError(err))
		return result.Song, nil
	}
	if e.autoplay {
		if err := e.Player.Play(); err != nil {
			// Host playback policy; the track stays loaded and paused.
			e.notices.Publish(notify.ForError(err))
		}
	}
	return result.Song, nil
}

// PlaySong loads a library song and starts it.
func (e *Engine) PlaySong(song models.Song) error {
	if err := e.Player.Load(song); err != nil {
		e.notices.Publish(notify.ForError(err))
		return err
	}
	if err := e.Player.Play(); err != nil {
		e.notices.Publish(notify.ForError(err))
		return err
	}
	return nil
}

// FetchSongs returns the session's library synchronously. Authenticated
// sessions fetch straight from the backend instead of waiting for the async
// reconcile, so one-shot commands can read a complete library.
func (e *Engine) FetchSongs(ctx context.Context) ([]models.Song, error) {
	sess := e.Sessions.Current()
	if sess.Mode != session.ModeAuthenticated {
		return e.Library.Songs(), nil
	}

	records, err := e.remote.ListRecords(ctx, sess.User.ID)
	if err != nil {
		return nil, err
	}
	songs := make([]models.Song, 0, len(records))
	for _, rec := range records {
		songs = append(songs, rec.Song())
	}
	return songs, nil
}

// Refresh re-fetches the authenticated library. Guest and unauthenticated
// sessions have nothing to fetch.
func (e *Engine) Refresh(ctx context.Context) {
	sess := e.Sessions.Current()
	if sess.Mode != session.ModeAuthenticated {
		return
	}
	e.Library.Refresh(ctx, sess.User.ID)
}

// SignIn authenticates and reports failures as notices in addition to the
// returned error. The library is reconciled before this returns, so callers
// can upload immediately after.
func (e *Engine) SignIn(ctx context.Context, email, password string) error {
	sess, err := e.Sessions.SignIn(ctx, email, password)
	if err != nil {
		e.notices.Publish(notify.ForError(err))
		return err
	}
	e.reconcile(ctx, sess)
	return nil
}

// SignUp registers a new account and signs it in.
func (e *Engine) SignUp(ctx context.Context, email, password string) error {
	sess, err := e.Sessions.SignUp(ctx, email, password)
	if err != nil {
		e.notices.Publish(notify.ForError(err))
		return err
	}
	e.reconcile(ctx, sess)
	return nil
}

// SignInWithProvider runs the provider OAuth flow.
func (e *Engine) SignInWithProvider(ctx context.Context, provider string) error {
	sess, err := e.Sessions.SignInWithProvider(ctx, provider)
	if err != nil {
		e.notices.Publish(notify.ForError(err))
		return err
	}
	e.reconcile(ctx, sess)
	return nil
}

// EnterGuest switches into guest mode.
func (e *Engine) EnterGuest() error {
	sess, err := e.Sessions.EnterGuest()
	if err != nil {
		e.notices.Publish(notify.ForError(err))
		return err
	}
	e.reconcile(context.Background(), sess)
	return nil
}

// SignOut ends the session. The library and player are cleared synchronously,
// before any remote call resolves.
func (e *Engine) SignOut(ctx context.Context) {
	e.Sessions.SignOut(ctx)
	e.reconcile(ctx, e.Sessions.Current())
}

// reconcile aligns the library with a session change, skipping the work when
// the library already belongs to that owner (a deduplicated transition).
func (e *Engine) reconcile(ctx context.Context, sess session.Session) {
	if e.Library.OwnerID() == sess.OwnerID() {
		return
	}
	e.Library.Reconcile(ctx, sess)
}

// Analyze returns a short description of the song's likely style. Always
// returns text; failures resolve to a fixed fallback.
func (e *Engine) Analyze(ctx context.Context, song models.Song) string {
	return e.Analyzer.Analyze(ctx, song.Title)
}

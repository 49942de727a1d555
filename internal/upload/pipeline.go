// package upload orchestrates metadata extraction and remote persistence for
// a single track, degrading to local playback when the backend fails.
package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/quietfall/tonearm/internal/metadata"
	"github.com/quietfall/tonearm/internal/models"
	"github.com/quietfall/tonearm/internal/remote"
	"github.com/quietfall/tonearm/internal/session"
	"github.com/quietfall/tonearm/internal/shared"
)

// Result is the outcome of one upload.
//
// Song is always playable. Synced reports whether the track reached the
// backend; when it did not and the session was authenticated, SyncErr carries
// the classified failure for the notification layer.
type Result struct {
	Song    models.Song
	Synced  bool
	SyncErr error
}

// Pipeline produces a Song from a file and the active session.
type Pipeline struct {
	remote    remote.Store
	extractor metadata.Extractor
	logger    *log.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(r remote.Store, extractor metadata.Extractor, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Pipeline{remote: r, extractor: extractor, logger: logger}
}

// Upload runs the pipeline for the file at path.
//
// The only hard failure is an unauthenticated session. Guest uploads never
// touch the network. For authenticated sessions any backend failure falls
// back to a locally backed Song so the user's playback is never blocked; the
// classified error rides along in the Result.
func (p *Pipeline) Upload(ctx context.Context, path string, sess session.Session) (Result, error) {
	if sess.Mode == session.ModeUnauthenticated {
		return Result{}, fmt.Errorf("%w: sign in or continue as guest to add tracks", shared.ErrNotAuthenticated)
	}

	title := shared.TitleFromFilename(path)
	artist := models.DefaultArtist
	coverURL := ""

	tags := p.extractor.Extract(path)
	if tags.Title != "" {
		title = tags.Title
	}
	if tags.Artist != "" {
		artist = tags.Artist
	}
	coverURL = tags.CoverImageURL

	if sess.Mode == session.ModeGuest {
		song := p.localSong(path, title, artist, coverURL, models.GuestOwnerID)
		return Result{Song: song, Synced: false}, nil
	}

	ownerID := sess.User.ID
	song, err := p.persist(ctx, path, title, artist, ownerID)
	if err != nil {
		p.logger.Error("cloud sync failed, falling back to local playback", "path", path, "err", err)
		fallback := p.localSong(path, title, artist, coverURL, ownerID)
		return Result{Song: fallback, Synced: false, SyncErr: err}, nil
	}

	// Cover art is session-local enrichment, never persisted server-side.
	song.CoverImageURL = coverURL
	return Result{Song: song, Synced: true}, nil
}

// persist uploads the binary then creates its record, cleaning up the orphaned
// binary if the record insert fails.
func (p *Pipeline) persist(ctx context.Context, path, title, artist, ownerID string) (models.Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Song{}, fmt.Errorf("%w: %w", shared.ErrStorage, err)
	}
	defer f.Close()

	loc, err := p.remote.UploadBinary(ctx, ownerID, filepath.Base(path), f)
	if err != nil {
		return models.Song{}, err
	}

	rec, err := p.remote.InsertRecord(ctx, models.TrackRecord{
		UserID: ownerID,
		Title:  title,
		Artist: artist,
		URL:    loc.URL,
	})
	if err != nil {
		if cleanupErr := p.remote.DeleteBinary(ctx, loc); cleanupErr != nil {
			p.logger.Warn("orphaned binary cleanup failed", "path", loc.Path, "err", cleanupErr)
		}
		return models.Song{}, err
	}

	return rec.Song(), nil
}

// localSong allocates a locally backed Song for guest and fallback playback.
func (p *Pipeline) localSong(path, title, artist, coverURL, ownerID string) models.Song {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return models.Song{
		ID:            shared.LocalID(),
		SourceURL:     abs,
		Title:         title,
		Artist:        artist,
		CoverImageURL: coverURL,
		OwnerID:       ownerID,
		Local:         true,
	}
}

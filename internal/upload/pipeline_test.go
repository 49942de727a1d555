package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/quietfall/tonearm/internal/metadata"
	"github.com/quietfall/tonearm/internal/models"
	"github.com/quietfall/tonearm/internal/remote"
	"github.com/quietfall/tonearm/internal/session"
	"github.com/quietfall/tonearm/internal/shared"
)

// fakeRemote is a test double for [remote.Store] tracking persistence calls.
type fakeRemote struct {
	mu          sync.Mutex
	uploadErr   error
	insertErr   error
	deleteErr   error
	uploadCalls int
	insertCalls int
	deleteCalls int
	deletedPath string
}

func (f *fakeRemote) UploadBinary(ctx context.Context, ownerID, filename string, r io.Reader) (remote.BinaryLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	if f.uploadErr != nil {
		return remote.BinaryLocation{}, f.uploadErr
	}
	path := ownerID + "/" + filename
	return remote.BinaryLocation{Path: path, URL: "https://cdn.example.com/" + path}, nil
}

func (f *fakeRemote) InsertRecord(ctx context.Context, rec models.TrackRecord) (models.TrackRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertErr != nil {
		return models.TrackRecord{}, f.insertErr
	}
	rec.ID = "server-1"
	return rec, nil
}

func (f *fakeRemote) DeleteBinary(ctx context.Context, loc remote.BinaryLocation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	f.deletedPath = loc.Path
	return f.deleteErr
}

func (f *fakeRemote) ListRecords(ctx context.Context, ownerID string) ([]models.TrackRecord, error) {
	return nil, nil
}

func (f *fakeRemote) ObserveAuth(ctx context.Context) <-chan remote.AuthState {
	ch := make(chan remote.AuthState)
	close(ch)
	return ch
}

func (f *fakeRemote) SignIn(ctx context.Context, email, password string) (models.User, error) {
	return models.User{}, nil
}

func (f *fakeRemote) SignUp(ctx context.Context, email, password string) (models.User, error) {
	return models.User{}, nil
}

func (f *fakeRemote) SignInWithProvider(ctx context.Context, provider string) (models.User, error) {
	return models.User{}, nil
}

func (f *fakeRemote) SignOut(ctx context.Context) error { return nil }

func (f *fakeRemote) networkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploadCalls + f.insertCalls + f.deleteCalls
}

// fakeExtractor returns canned tags.
type fakeExtractor struct {
	tags metadata.Tags
}

func (f *fakeExtractor) Extract(path string) metadata.Tags { return f.tags }

func writeTrack(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("audio-bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func authedSession() session.Session {
	return session.Authenticated(models.User{ID: "user-1", Username: "alice", Email: "alice@example.com"})
}

func TestUploadRequiresSession(t *testing.T) {
	p := NewPipeline(&fakeRemote{}, &fakeExtractor{}, nil)

	_, err := p.Upload(context.Background(), "track.mp3", session.Unauthenticated())
	if !errors.Is(err, shared.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestGuestUpload(t *testing.T) {
	fake := &fakeRemote{}
	p := NewPipeline(fake, &fakeExtractor{tags: metadata.Tags{Title: "Test", Artist: "Band"}}, nil)
	path := writeTrack(t, "track.mp3")

	res, err := p.Upload(context.Background(), path, session.Guest())
	if err != nil {
		t.Fatalf("guest upload failed: %v", err)
	}

	if fake.networkCalls() != 0 {
		t.Errorf("guest upload must perform no network I/O, got %d calls", fake.networkCalls())
	}
	if res.Song.OwnerID != models.GuestOwnerID {
		t.Errorf("expected guest owner, got %s", res.Song.OwnerID)
	}
	if !res.Song.Local {
		t.Error("guest song must be locally backed")
	}
	if res.Song.Title != "Test" || res.Song.Artist != "Band" {
		t.Errorf("tags not applied: %+v", res.Song)
	}
	if res.Synced {
		t.Error("guest upload must not report synced")
	}
}

func TestAuthenticatedUpload(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fake := &fakeRemote{}
		p := NewPipeline(fake, &fakeExtractor{tags: metadata.Tags{Title: "Test", CoverImageURL: "/tmp/cover.jpg"}}, nil)
		path := writeTrack(t, "track.mp3")

		res, err := p.Upload(context.Background(), path, authedSession())
		if err != nil {
			t.Fatalf("upload failed: %v", err)
		}
		if !res.Synced || res.SyncErr != nil {
			t.Errorf("expected synced result, got %+v", res)
		}
		if res.Song.ID != "server-1" {
			t.Errorf("expected server-issued id, got %s", res.Song.ID)
		}
		if res.Song.CoverImageURL != "/tmp/cover.jpg" {
			t.Error("cover image should be attached locally after persistence")
		}
		if res.Song.Local {
			t.Error("persisted song should not be marked local")
		}
	})

	t.Run("storage failure falls back to local playback", func(t *testing.T) {
		fake := &fakeRemote{uploadErr: fmt.Errorf("%w: %w", shared.ErrStorage, shared.ErrPermissionPolicy)}
		p := NewPipeline(fake, &fakeExtractor{}, nil)
		path := writeTrack(t, "track.mp3")

		res, err := p.Upload(context.Background(), path, authedSession())
		if err != nil {
			t.Fatalf("fallback must not be a hard failure: %v", err)
		}
		if res.Synced {
			t.Error("failed sync must not report synced")
		}
		if !errors.Is(res.SyncErr, shared.ErrStorage) {
			t.Errorf("expected classified storage error, got %v", res.SyncErr)
		}
		if !res.Song.Local {
			t.Error("fallback song must be locally backed")
		}
		if res.Song.OwnerID != "user-1" {
			t.Errorf("fallback song keeps the authenticated owner, got %s", res.Song.OwnerID)
		}
		if res.Song.SourceURL == "" {
			t.Error("fallback song must be playable")
		}
	})

	t.Run("record failure cleans up the orphaned binary", func(t *testing.T) {
		fake := &fakeRemote{insertErr: fmt.Errorf("%w: denied", shared.ErrRecord)}
		p := NewPipeline(fake, &fakeExtractor{}, nil)
		path := writeTrack(t, "track.mp3")

		res, err := p.Upload(context.Background(), path, authedSession())
		if err != nil {
			t.Fatal(err)
		}
		if fake.deleteCalls != 1 {
			t.Errorf("expected one cleanup call, got %d", fake.deleteCalls)
		}
		if fake.deletedPath != "user-1/track.mp3" {
			t.Errorf("cleanup targeted wrong object: %s", fake.deletedPath)
		}
		if !errors.Is(res.SyncErr, shared.ErrRecord) {
			t.Errorf("expected record error, got %v", res.SyncErr)
		}
	})

	t.Run("cleanup failure is absorbed", func(t *testing.T) {
		fake := &fakeRemote{
			insertErr: fmt.Errorf("%w: denied", shared.ErrRecord),
			deleteErr: errors.New("also down"),
		}
		p := NewPipeline(fake, &fakeExtractor{}, nil)
		path := writeTrack(t, "track.mp3")

		res, err := p.Upload(context.Background(), path, authedSession())
		if err != nil {
			t.Fatal(err)
		}
		if res.Song.SourceURL == "" {
			t.Error("fallback song must still be produced when cleanup fails")
		}
	})
}

func TestMetadataDefaults(t *testing.T) {
	p := NewPipeline(&fakeRemote{}, &fakeExtractor{}, nil)
	path := writeTrack(t, "My Favorite Song.mp3")

	res, err := p.Upload(context.Background(), path, session.Guest())
	if err != nil {
		t.Fatal(err)
	}
	if res.Song.Title != "My Favorite Song" {
		t.Errorf("expected filename-derived title, got %q", res.Song.Title)
	}
	if res.Song.Artist != models.DefaultArtist {
		t.Errorf("expected default artist, got %q", res.Song.Artist)
	}
}

// package library owns the in-memory track collection for the active session.
//
// The library is newest-first and belongs to exactly one owner at a time. It
// is cleared synchronously whenever the session leaves that owner, so guest
// and offline use never leave anything behind.
package library

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/quietfall/tonearm/internal/models"
	"github.com/quietfall/tonearm/internal/remote"
	"github.com/quietfall/tonearm/internal/session"
	"github.com/quietfall/tonearm/internal/shared"
)

// Store holds the track collection and reconciles it against session changes.
type Store struct {
	remote remote.Store
	logger *log.Logger

	mu         sync.Mutex
	songs      []models.Song
	ownerID    string
	generation uint64
	onChange   func()
}

// NewStore creates an empty library.
func NewStore(r remote.Store, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{remote: r, logger: logger}
}

// SetOnChange registers a callback invoked after every library mutation.
// The callback runs without the store lock held.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Songs returns a snapshot of the library, newest first.
func (s *Store) Songs() []models.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Song, len(s.songs))
	copy(out, s.songs)
	return out
}

// OwnerID returns the owner the library currently belongs to.
func (s *Store) OwnerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownerID
}

// Contains reports whether a song id is present in the library.
func (s *Store) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, song := range s.songs {
		if song.ID == id {
			return true
		}
	}
	return false
}

// Reconcile replaces the library to match the session's authoritative source.
//
// Guest and unauthenticated sessions clear the library synchronously with no
// network call. Authenticated sessions fetch the owner's records
// asynchronously; rapid session changes are last-write-wins, a fetch issued
// for an earlier session is discarded when it completes late.
func (s *Store) Reconcile(ctx context.Context, sess session.Session) {
	switch sess.Mode {
	case session.ModeAuthenticated:
		s.Refresh(ctx, sess.User.ID)
	case session.ModeGuest:
		s.reset(models.GuestOwnerID)
	default:
		s.reset("")
	}
}

// Refresh re-issues the record fetch for the given owner. Safe to call
// repeatedly; the list is replaced wholesale, never appended to.
func (s *Store) Refresh(ctx context.Context, ownerID string) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	if s.ownerID != ownerID {
		s.ownerID = ownerID
		s.songs = nil
	}
	s.mu.Unlock()
	s.notify()

	go func() {
		records, err := s.remote.ListRecords(ctx, ownerID)

		s.mu.Lock()
		if s.generation != gen {
			s.mu.Unlock()
			s.logger.Debug("discarding stale library fetch", "owner", ownerID)
			return
		}
		if err != nil {
			// A failed fetch resolves to an empty library, never a crash.
			s.logger.Error("library fetch failed", "owner", ownerID, "err", err)
			s.songs = nil
			s.mu.Unlock()
			s.notify()
			return
		}

		songs := make([]models.Song, 0, len(records))
		for _, rec := range records {
			songs = append(songs, rec.Song())
		}
		s.songs = songs
		s.mu.Unlock()
		s.logger.Debug("library reconciled", "owner", ownerID, "tracks", len(songs))
		s.notify()
	}()
}

// Insert prepends a song to the library. Most-recent-first ordering is the
// only guarantee; there is no dedup by content.
func (s *Store) Insert(song models.Song) {
	s.mu.Lock()
	s.songs = append([]models.Song{song}, s.songs...)
	s.mu.Unlock()
	s.notify()
}

// reset clears the library and invalidates any in-flight fetch.
func (s *Store) reset(ownerID string) {
	s.mu.Lock()
	s.generation++
	s.ownerID = ownerID
	s.songs = nil
	s.mu.Unlock()
	s.notify()
}

func (s *Store) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

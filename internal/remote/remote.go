// package remote defines the capability interface for the persistence backend
//
// The engine never talks to the backend directly; SessionManager, LibraryStore
// and the upload pipeline all hold a [Store] so tests can substitute an
// in-memory fake.
package remote

import (
	"context"
	"io"

	"github.com/quietfall/tonearm/internal/models"
)

// AuthState is one emission on the auth observation stream.
//
// A nil User means no identity (signed out or never signed in).
type AuthState struct {
	User *models.User
}

// BinaryLocation identifies an uploaded binary on the backend.
type BinaryLocation struct {
	Path string // bucket-relative object path, used for cleanup
	URL  string // public URL for playback
}

// Store is the contract the remote persistence backend must satisfy.
type Store interface {
	// UploadBinary stores the audio binary for ownerID and returns its location.
	// Failures are classified with shared.ErrStorage.
	UploadBinary(ctx context.Context, ownerID, filename string, r io.Reader) (BinaryLocation, error)

	// InsertRecord creates the database record for an uploaded track and
	// returns the persisted row with its server-issued ID.
	// Failures are classified with shared.ErrRecord.
	InsertRecord(ctx context.Context, rec models.TrackRecord) (models.TrackRecord, error)

	// DeleteBinary removes an uploaded binary. Best-effort cleanup for
	// orphaned uploads whose record insert failed.
	DeleteBinary(ctx context.Context, loc BinaryLocation) error

	// ListRecords returns the owner's tracks, newest first.
	// Failures are classified with shared.ErrFetch.
	ListRecords(ctx context.Context, ownerID string) ([]models.TrackRecord, error)

	// ObserveAuth returns a stream of auth state changes. The current state is
	// emitted first; the channel is closed when ctx is done.
	ObserveAuth(ctx context.Context) <-chan AuthState

	// SignIn authenticates with email and password.
	SignIn(ctx context.Context, email, password string) (models.User, error)

	// SignUp registers a new account.
	SignUp(ctx context.Context, email, password string) (models.User, error)

	// SignInWithProvider runs a browser-based OAuth flow for the named provider.
	SignInWithProvider(ctx context.Context, provider string) (models.User, error)

	// SignOut invalidates the backend session.
	SignOut(ctx context.Context) error
}

package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/quietfall/tonearm/internal/models"
	"github.com/quietfall/tonearm/internal/remote"
	"github.com/quietfall/tonearm/internal/shared"
)

// fakeStore is a test double for [remote.Store].
type fakeStore struct {
	mu           sync.Mutex
	user         *models.User
	signInErr    error
	signOutErr   error
	signOutCalls int
	signedOut    chan struct{}
	authCh       chan remote.AuthState
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		signedOut: make(chan struct{}, 1),
		authCh:    make(chan remote.AuthState, 4),
	}
}

func (f *fakeStore) UploadBinary(ctx context.Context, ownerID, filename string, r io.Reader) (remote.BinaryLocation, error) {
	return remote.BinaryLocation{}, nil
}

func (f *fakeStore) InsertRecord(ctx context.Context, rec models.TrackRecord) (models.TrackRecord, error) {
	return rec, nil
}

func (f *fakeStore) DeleteBinary(ctx context.Context, loc remote.BinaryLocation) error {
	return nil
}

func (f *fakeStore) ListRecords(ctx context.Context, ownerID string) ([]models.TrackRecord, error) {
	return nil, nil
}

func (f *fakeStore) ObserveAuth(ctx context.Context) <-chan remote.AuthState {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCh <- remote.AuthState{User: f.user}
	return f.authCh
}

func (f *fakeStore) emit(user *models.User) {
	f.authCh <- remote.AuthState{User: user}
}

func (f *fakeStore) SignIn(ctx context.Context, email, password string) (models.User, error) {
	if f.signInErr != nil {
		return models.User{}, f.signInErr
	}
	return models.User{ID: "user-1", Username: "alice", Email: email}, nil
}

func (f *fakeStore) SignUp(ctx context.Context, email, password string) (models.User, error) {
	return f.SignIn(ctx, email, password)
}

func (f *fakeStore) SignInWithProvider(ctx context.Context, provider string) (models.User, error) {
	return f.SignIn(ctx, provider+"@provider", "")
}

func (f *fakeStore) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.signOutCalls++
	f.mu.Unlock()
	select {
	case f.signedOut <- struct{}{}:
	default:
	}
	return f.signOutErr
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOutCalls
}

func TestGuestTransitions(t *testing.T) {
	store := newFakeStore()
	m := NewManager(store, nil)

	sess, err := m.EnterGuest()
	if err != nil {
		t.Fatalf("guest entry failed: %v", err)
	}
	if sess.Mode != ModeGuest || sess.OwnerID() != models.GuestOwnerID {
		t.Errorf("unexpected guest session %+v", sess)
	}

	m.SignOut(context.Background())
	if m.Current().Mode != ModeUnauthenticated {
		t.Errorf("guest sign-out should be local, got %v", m.Current().Mode)
	}
	if store.calls() != 0 {
		t.Errorf("guest sign-out must not call the backend, got %d calls", store.calls())
	}
}

func TestSignIn(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		m := NewManager(newFakeStore(), nil)
		sess, err := m.SignIn(context.Background(), "alice@example.com", "pw")
		if err != nil {
			t.Fatalf("sign in failed: %v", err)
		}
		if sess.Mode != ModeAuthenticated || sess.User.ID != "user-1" {
			t.Errorf("unexpected session %+v", sess)
		}
	})

	t.Run("failure leaves session unauthenticated", func(t *testing.T) {
		store := newFakeStore()
		store.signInErr = shared.ErrAuthFailed
		m := NewManager(store, nil)

		_, err := m.SignIn(context.Background(), "alice@example.com", "wrong")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if m.Current().Mode != ModeUnauthenticated {
			t.Errorf("session should remain unauthenticated, got %v", m.Current().Mode)
		}
	})

	t.Run("from guest exits guest mode first", func(t *testing.T) {
		m := NewManager(newFakeStore(), nil)
		if _, err := m.EnterGuest(); err != nil {
			t.Fatal(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stream := m.Observe(ctx)
		<-stream // guest snapshot

		sess, err := m.SignIn(context.Background(), "alice@example.com", "pw")
		if err != nil {
			t.Fatalf("sign in from guest failed: %v", err)
		}
		if sess.Mode != ModeAuthenticated {
			t.Errorf("expected authenticated session, got %v", sess.Mode)
		}
		if got := m.Current(); got.Mode != sess.Mode || got.OwnerID() != sess.OwnerID() {
			t.Errorf("returned session %+v was not installed, current is %+v", sess, got)
		}

		// Guest and Authenticated never touch directly.
		if mid := <-stream; mid.Mode != ModeUnauthenticated {
			t.Errorf("expected pass through unauthenticated, got %v", mid.Mode)
		}
		if final := <-stream; final.Mode != ModeAuthenticated {
			t.Errorf("expected authenticated emission, got %v", final.Mode)
		}
	})

	t.Run("guest cannot become authenticated directly via guest entry", func(t *testing.T) {
		m := NewManager(newFakeStore(), nil)
		if _, err := m.SignIn(context.Background(), "alice@example.com", "pw"); err != nil {
			t.Fatal(err)
		}
		if _, err := m.EnterGuest(); err == nil {
			t.Error("guest entry while authenticated should fail")
		}
	})
}

func TestSignOutIsLocalFirst(t *testing.T) {
	store := newFakeStore()
	store.signOutErr = errors.New("backend unreachable")
	m := NewManager(store, nil)

	if _, err := m.SignIn(context.Background(), "alice@example.com", "pw"); err != nil {
		t.Fatal(err)
	}

	m.SignOut(context.Background())
	if m.Current().Mode != ModeUnauthenticated {
		t.Error("local transition must not wait for the backend")
	}

	select {
	case <-store.signedOut:
	case <-time.After(time.Second):
		t.Error("remote sign-out was never requested")
	}
}

func TestAuthStream(t *testing.T) {
	t.Run("cold start resolves persisted identity", func(t *testing.T) {
		store := newFakeStore()
		store.user = &models.User{ID: "user-9", Username: "bob", Email: "bob@example.com"}
		m := NewManager(store, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stream := m.Observe(ctx)
		<-stream // initial unauthenticated snapshot
		m.Start(ctx)

		sess := <-stream
		if sess.Mode != ModeAuthenticated || sess.User.ID != "user-9" {
			t.Errorf("expected restored session, got %+v", sess)
		}
	})

	t.Run("external expiry ends the session", func(t *testing.T) {
		store := newFakeStore()
		store.user = &models.User{ID: "user-9"}
		m := NewManager(store, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stream := m.Observe(ctx)
		<-stream
		m.Start(ctx)
		<-stream // authenticated

		store.emit(nil)
		sess := <-stream
		if sess.Mode != ModeUnauthenticated {
			t.Errorf("expected unauthenticated after expiry, got %v", sess.Mode)
		}
	})

	t.Run("guest session survives backend no-identity reports", func(t *testing.T) {
		store := newFakeStore()
		m := NewManager(store, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		m.Start(ctx)

		if _, err := m.EnterGuest(); err != nil {
			t.Fatal(err)
		}
		store.emit(nil)
		time.Sleep(50 * time.Millisecond)
		if m.Current().Mode != ModeGuest {
			t.Errorf("guest session should not be evicted, got %v", m.Current().Mode)
		}
	})
}

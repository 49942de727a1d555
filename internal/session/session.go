// package session owns the active user session and its transitions.
//
// Exactly one Session is active at a time. It starts Unauthenticated and is
// replaced wholesale on sign-in, guest entry and sign-out; it is never
// partially mutated. Guest and Authenticated never transition into each other
// directly, every path passes through Unauthenticated.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/quietfall/tonearm/internal/models"
	"github.com/quietfall/tonearm/internal/remote"
	"github.com/quietfall/tonearm/internal/shared"
)

// Mode enumerates the session variants.
type Mode int

const (
	ModeUnauthenticated Mode = iota
	ModeGuest
	ModeAuthenticated
)

func (m Mode) String() string {
	switch m {
	case ModeGuest:
		return "guest"
	case ModeAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Session is an immutable snapshot of the active session.
type Session struct {
	Mode Mode
	User *models.User // set only when Mode is ModeAuthenticated
}

// Unauthenticated returns the no-identity session.
func Unauthenticated() Session {
	return Session{Mode: ModeUnauthenticated}
}

// Guest returns the sentinel guest session.
func Guest() Session {
	return Session{Mode: ModeGuest}
}

// Authenticated returns a session for the given identity.
func Authenticated(user models.User) Session {
	return Session{Mode: ModeAuthenticated, User: &user}
}

// OwnerID returns the library owner for this session: the user id when
// authenticated, the guest sentinel for guests, empty otherwise.
func (s Session) OwnerID() string {
	switch s.Mode {
	case ModeAuthenticated:
		return s.User.ID
	case ModeGuest:
		return models.GuestOwnerID
	default:
		return ""
	}
}

// legal reports whether the session state machine allows from -> to.
func legal(from, to Mode) bool {
	if from == to {
		return true
	}
	switch from {
	case ModeUnauthenticated:
		return true // sign-in or guest entry
	case ModeGuest, ModeAuthenticated:
		return to == ModeUnauthenticated
	}
	return false
}

// Manager owns the active session and publishes its changes.
type Manager struct {
	store  remote.Store
	logger *log.Logger

	mu      sync.Mutex
	current Session
	subs    []chan Session
}

// NewManager creates a Manager starting in the Unauthenticated state.
func NewManager(store remote.Store, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Manager{
		store:   store,
		logger:  logger,
		current: Unauthenticated(),
	}
}

// Current returns the active session.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Observe returns a stream of session changes. The first value is the current
// session; the channel closes when ctx is done.
func (m *Manager) Observe(ctx context.Context) <-chan Session {
	ch := make(chan Session, 4)

	m.mu.Lock()
	ch <- m.current
	m.subs = append(m.subs, ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		for i, sub := range m.subs {
			if sub == ch {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				break
			}
		}
		m.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Start resolves any persisted remote auth state and keeps following the
// backend's auth stream (external sign-ins and session expiry). It returns
// once the stream is being consumed.
func (m *Manager) Start(ctx context.Context) {
	stream := m.store.ObserveAuth(ctx)
	go func() {
		for state := range stream {
			m.applyAuthState(state)
		}
	}()
}

// applyAuthState folds a backend auth emission into the session.
//
// Guest mode is purely local, so a backend "no identity" report never evicts
// an active guest session.
func (m *Manager) applyAuthState(state remote.AuthState) {
	current := m.Current()

	if state.User == nil {
		if current.Mode == ModeAuthenticated {
			m.logger.Info("remote session ended", "user", current.User.ID)
			m.transition(Unauthenticated())
		}
		return
	}

	if current.Mode == ModeAuthenticated && current.User.ID == state.User.ID {
		return
	}

	// An externally observed sign-in still passes through Unauthenticated.
	if current.Mode != ModeUnauthenticated {
		m.transition(Unauthenticated())
	}
	m.transition(Authenticated(*state.User))
}

// EnterGuest switches an unauthenticated session into guest mode. It performs
// no network call and always succeeds locally; an authenticated session must
// sign out first.
func (m *Manager) EnterGuest() (Session, error) {
	current := m.Current()
	if current.Mode == ModeAuthenticated {
		return current, fmt.Errorf("%w: sign out before entering guest mode", shared.ErrInvalidArgument)
	}
	next := Guest()
	m.transition(next)
	return next, nil
}

// SignIn authenticates against the backend. Auth failures leave the session
// unchanged and are surfaced to the caller.
func (m *Manager) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := m.store.SignIn(ctx, email, password)
	if err != nil {
		return m.Current(), err
	}
	return m.installAuthenticated(user), nil
}

// SignUp registers a new account and signs it in.
func (m *Manager) SignUp(ctx context.Context, email, password string) (Session, error) {
	user, err := m.store.SignUp(ctx, email, password)
	if err != nil {
		return m.Current(), err
	}
	return m.installAuthenticated(user), nil
}

// SignInWithProvider runs the provider OAuth flow and signs in.
func (m *Manager) SignInWithProvider(ctx context.Context, provider string) (Session, error) {
	user, err := m.store.SignInWithProvider(ctx, provider)
	if err != nil {
		return m.Current(), err
	}
	return m.installAuthenticated(user), nil
}

// installAuthenticated makes user the active session. A guest signing in exits
// guest mode first, so the transition passes through Unauthenticated like
// every other guest exit.
func (m *Manager) installAuthenticated(user models.User) Session {
	if m.Current().Mode == ModeGuest {
		m.transition(Unauthenticated())
	}
	next := Authenticated(user)
	m.transition(next)
	return next
}

// SignOut transitions to Unauthenticated. Guest sign-out is purely local.
// For an authenticated session the local transition happens immediately and
// the remote sign-out proceeds in the background; its failure is logged only.
func (m *Manager) SignOut(ctx context.Context) {
	current := m.Current()

	switch current.Mode {
	case ModeUnauthenticated:
		return
	case ModeGuest:
		m.transition(Unauthenticated())
	case ModeAuthenticated:
		m.transition(Unauthenticated())
		go func() {
			if err := m.store.SignOut(ctx); err != nil {
				m.logger.Error("remote sign-out failed", "err", err)
			}
		}()
	}
}

// transition installs the next session and notifies observers.
func (m *Manager) transition(next Session) {
	m.mu.Lock()
	if !legal(m.current.Mode, next.Mode) {
		// Unreachable through the public API; kept as a guard.
		m.logger.Error("illegal session transition", "from", m.current.Mode, "to", next.Mode)
		m.mu.Unlock()
		return
	}
	if m.current.Mode == next.Mode && m.current.OwnerID() == next.OwnerID() {
		m.mu.Unlock()
		return
	}
	m.current = next
	subs := make([]chan Session, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	m.logger.Debug("session transition", "mode", next.Mode, "owner", next.OwnerID())
	for _, sub := range subs {
		select {
		case sub <- next:
		default:
			m.logger.Warn("session observer not keeping up, dropping update")
		}
	}
}

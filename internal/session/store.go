package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sparkmatch/backend/internal/identity"
	"github.com/sparkmatch/backend/internal/logging"
	"github.com/sparkmatch/backend/internal/models"
	"github.com/sparkmatch/backend/internal/repositories"
)

// ErrNotHydrated indicates the store was read before the persisted snapshot
// was restored. Callers must wait for Hydrate to complete at startup.
var ErrNotHydrated = errors.New("session store not hydrated")

// State is the observable session state: the signed-in user's profile
// snapshot, an in-flight flag, and the last error message.
type State struct {
	User          *models.UserProfile
	Loading       bool
	Err           string
	RemoteRevoked bool
}

// ProfileStore captures the document-store operations the session store needs.
type ProfileStore interface {
	Get(ctx context.Context, uid string) (models.UserProfile, error)
	Merge(ctx context.Context, uid string, patch models.ProfilePatch) error
}

// Store owns the authenticated-session state machine. It is constructed once
// at startup and passed explicitly to every component that needs session data.
//
// Overlapping operations are fenced by a generation counter: each call takes
// the next generation when it starts, and only the most recently issued call
// commits its result. A slower, earlier call that finishes after a newer one
// is dropped instead of clobbering the newer state.
type Store struct {
	provider identity.Provider
	profiles ProfileStore
	snapshot SnapshotStore
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	gen      uint64
	hydrated bool
}

// NewStore constructs a session store wired to the identity provider, profile
// document store, and snapshot persistence.
func NewStore(provider identity.Provider, profiles ProfileStore, snapshot SnapshotStore, logger *slog.Logger) *Store {
	if provider == nil {
		panic("session: identity provider must not be nil")
	}
	if profiles == nil {
		panic("session: profile store must not be nil")
	}
	if snapshot == nil {
		snapshot = discardSnapshotStore{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		provider: provider,
		profiles: profiles,
		snapshot: snapshot,
		logger:   logger,
	}
}

// Hydrate restores the persisted session snapshot. It must be called exactly
// once at startup before any other method; reads before hydration fail with
// ErrNotHydrated.
func (s *Store) Hydrate(ctx context.Context) error {
	snap, ok, err := s.snapshot.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore session snapshot: %w", err)
	}

	s.mu.Lock()
	if ok {
		s.state.User = snap.User
		s.state.RemoteRevoked = snap.RemoteRevoked
	}
	s.hydrated = true
	s.mu.Unlock()

	return nil
}

// Snapshot returns a copy of the current session state.
func (s *Store) Snapshot() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hydrated {
		return State{}, ErrNotHydrated
	}
	return s.copyStateLocked(), nil
}

// SignedIn reports whether a user is currently present. Before hydration it
// reports false.
func (s *Store) SignedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated && s.state.User != nil
}

// SignIn authenticates the credentials, fetches the matching profile document,
// and replaces the session user with the merged result. On failure the user is
// left unchanged and the error message is recorded. Loading is always cleared
// when the winning call finishes.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	ctx, op := logging.StartOp(ctx, "session.sign_in")
	defer op.End()

	gen, err := s.begin()
	if err != nil {
		return err
	}

	id, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		s.fail(ctx, gen, identity.Message(err))
		return err
	}

	profile, err := s.profiles.Get(ctx, id.ID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		s.fail(ctx, gen, identity.Message(err))
		return err
	}

	profile.ID = id.ID
	if profile.Email == "" {
		profile.Email = id.Email
	}

	s.commitUser(ctx, gen, &profile)
	return nil
}

// SignUp creates a new account, writes the initial profile document keyed by
// the new identifier, and replaces the session user with it.
func (s *Store) SignUp(ctx context.Context, email, password, firstName, birthDate string) error {
	ctx, op := logging.StartOp(ctx, "session.sign_up")
	defer op.End()

	gen, err := s.begin()
	if err != nil {
		return err
	}

	id, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		s.fail(ctx, gen, identity.Message(err))
		return err
	}

	patch := models.ProfilePatch{Email: &id.Email}
	if firstName != "" {
		patch.FirstName = &firstName
	}
	if birthDate != "" {
		patch.BirthDate = &birthDate
	}

	if err := s.profiles.Merge(ctx, id.ID, patch); err != nil {
		s.fail(ctx, gen, identity.Message(err))
		return err
	}

	profile := models.UserProfile{
		ID:        id.ID,
		Email:     id.Email,
		FirstName: firstName,
		BirthDate: birthDate,
	}

	s.commitUser(ctx, gen, &profile)
	return nil
}

// SignOut is idempotent: local session state is cleared regardless of whether
// the identity backend could be reached. RemoteRevoked records whether the
// backend-side session was actually invalidated.
func (s *Store) SignOut(ctx context.Context) error {
	ctx, op := logging.StartOp(ctx, "session.sign_out")
	defer op.End()

	gen, err := s.begin()
	if err != nil {
		return err
	}

	var accountID string
	s.mu.Lock()
	if s.state.User != nil {
		accountID = s.state.User.ID
	}
	s.mu.Unlock()

	revokeErr := s.provider.SignOut(ctx, accountID)

	s.mu.Lock()
	if gen == s.gen {
		s.state.User = nil
		s.state.Loading = false
		s.state.RemoteRevoked = revokeErr == nil
		if revokeErr != nil {
			s.state.Err = revokeErr.Error()
		} else {
			s.state.Err = ""
		}
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	return revokeErr
}

// UpdateUser unconditionally replaces the session user. It performs no remote
// write; callers use it to reflect writes they already performed themselves.
func (s *Store) UpdateUser(profile *models.UserProfile) {
	s.mu.Lock()
	s.state.User = profile
	s.persistLocked(context.Background())
	s.mu.Unlock()
}

func (s *Store) begin() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hydrated {
		return 0, ErrNotHydrated
	}
	s.gen++
	s.state.Loading = true
	s.state.Err = ""
	return s.gen, nil
}

func (s *Store) commitUser(ctx context.Context, gen uint64, profile *models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		logging.FromContext(ctx).Info("dropping stale session result", "gen", gen, "latest", s.gen)
		return
	}
	s.state.User = profile
	s.state.Loading = false
	s.state.Err = ""
	s.persistLocked(ctx)
}

func (s *Store) fail(ctx context.Context, gen uint64, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		logging.FromContext(ctx).Info("dropping stale session failure", "gen", gen, "latest", s.gen)
		return
	}
	s.state.Loading = false
	s.state.Err = msg
	s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) {
	snap := Snapshot{User: s.state.User, RemoteRevoked: s.state.RemoteRevoked}
	if err := s.snapshot.Save(ctx, snap); err != nil {
		s.logger.Error("persist session snapshot", "error", err)
	}
}

func (s *Store) copyStateLocked() State {
	state := s.state
	if s.state.User != nil {
		user := *s.state.User
		state.User = &user
	}
	return state
}

package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sparkmatch/backend/internal/models"
	"github.com/sparkmatch/backend/internal/repositories"
)

// AccountStore captures the persistence operations required by the provider.
type AccountStore interface {
	Create(ctx context.Context, account models.Account) error
	FindByEmail(ctx context.Context, email string) (models.Account, error)
}

// DeviceSessionStore persists issued device sessions so sign-out can revoke them.
type DeviceSessionStore interface {
	Save(ctx context.Context, session models.DeviceSession) error
	DeleteForAccount(ctx context.Context, accountID string) error
}

// PostgresProvider implements Provider on top of the accounts table.
type PostgresProvider struct {
	accounts AccountStore
	sessions DeviceSessionStore

	NowFunc func() time.Time
}

// NewPostgresProvider constructs a provider backed by the supplied stores.
func NewPostgresProvider(accounts AccountStore, sessions DeviceSessionStore) *PostgresProvider {
	if accounts == nil {
		panic("identity: account store must not be nil")
	}
	if sessions == nil {
		panic("identity: device session store must not be nil")
	}
	return &PostgresProvider{accounts: accounts, sessions: sessions}
}

// SignIn authenticates the email/password pair and records a device session.
func (p *PostgresProvider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Identity{}, err
	}

	account, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return Identity{}, ErrWrongCredentials
		}
		return Identity{}, fmt.Errorf("look up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
		return Identity{}, ErrWrongCredentials
	}

	if err := p.recordSession(ctx, account.ID); err != nil {
		return Identity{}, err
	}

	return Identity{ID: account.ID, Email: account.Email}, nil
}

// SignUp creates a new account and records a device session for it.
func (p *PostgresProvider) SignUp(ctx context.Context, email, password string) (Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Identity{}, err
	}
	if password == "" {
		return Identity{}, errors.New("password is required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, fmt.Errorf("hash password: %w", err)
	}

	now := p.now()
	account := models.Account{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := p.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return Identity{}, ErrEmailInUse
		}
		return Identity{}, fmt.Errorf("create account: %w", err)
	}

	if err := p.recordSession(ctx, account.ID); err != nil {
		return Identity{}, err
	}

	return Identity{ID: account.ID, Email: account.Email}, nil
}

// SignOut revokes every device session held for the account.
func (p *PostgresProvider) SignOut(ctx context.Context, accountID string) error {
	if accountID == "" {
		return nil
	}
	if err := p.sessions.DeleteForAccount(ctx, accountID); err != nil {
		return fmt.Errorf("revoke device sessions: %w", err)
	}
	return nil
}

func (p *PostgresProvider) recordSession(ctx context.Context, accountID string) error {
	token, err := randomToken()
	if err != nil {
		return err
	}
	session := models.DeviceSession{
		Token:     token,
		AccountID: accountID,
		IssuedAt:  p.now(),
	}
	if err := p.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("record device session: %w", err)
	}
	return nil
}

func (p *PostgresProvider) now() time.Time {
	if p.NowFunc != nil {
		return p.NowFunc()
	}
	return time.Now().UTC()
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func randomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

var _ Provider = (*PostgresProvider)(nil)

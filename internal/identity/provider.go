package identity

import (
	"context"
	"errors"
)

var (
	// ErrInvalidEmail indicates the supplied email address is malformed.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrWrongCredentials indicates the email/password pair did not match an account.
	ErrWrongCredentials = errors.New("wrong credentials")
	// ErrEmailInUse indicates an account already exists for the supplied email.
	ErrEmailInUse = errors.New("email already in use")
)

// Identity is the opaque result of a successful authentication: the account
// identifier every other record is keyed by, plus the canonical email.
type Identity struct {
	ID    string
	Email string
}

// Provider authenticates email/password credentials and manages the device
// session held with the identity backend.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignUp(ctx context.Context, email, password string) (Identity, error)
	SignOut(ctx context.Context, accountID string) error
}

// Message translates known authentication failures into the fixed user-facing
// strings shown by the app. Anything else surfaces verbatim.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidEmail):
		return "Invalid email"
	case errors.Is(err, ErrWrongCredentials):
		return "Wrong credentials"
	case errors.Is(err, ErrEmailInUse):
		return "This email is already in use"
	default:
		return err.Error()
	}
}

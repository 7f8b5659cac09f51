package handlers

import (
	"context"
	"io"

	"github.com/sparkmatch/backend/internal/feed"
	"github.com/sparkmatch/backend/internal/media"
	"github.com/sparkmatch/backend/internal/models"
	"github.com/sparkmatch/backend/internal/session"
)

// SessionStore captures the session operations required by the HTTP handlers.
type SessionStore interface {
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password, firstName, birthDate string) error
	SignOut(ctx context.Context) error
	Snapshot() (session.State, error)
	SignedIn() bool
}

// MediaUploader runs the profile-image flow synchronously on the request path.
type MediaUploader interface {
	UploadProfileImage(ctx context.Context, fileName string, r io.Reader, size int64, status media.StatusFunc) (models.UserProfile, error)
}

// UploadQueue schedules background execution of spooled upload tasks.
type UploadQueue interface {
	Enqueue(ctx context.Context, task models.UploadTask) error
}

// FeedLoader provides the profile feed with an explicit refresh trigger.
type FeedLoader interface {
	Load(ctx context.Context) ([]feed.Item, error)
	Refresh(ctx context.Context) ([]feed.Item, error)
}

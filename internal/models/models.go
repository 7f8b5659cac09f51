package models

import "time"

// Account is an identity-provider record: credentials plus the opaque
// identifier every other record is keyed by.
type Account struct {
	ID        string
	Email     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserProfile is the profile document stored for each account. The ID is
// assigned at sign-up and never changes; every other field is optional and
// stays empty until the corresponding flow fills it in.
type UserProfile struct {
	ID                        string     `json:"uid"`
	Email                     string     `json:"email,omitempty"`
	FirstName                 string     `json:"firstName,omitempty"`
	BirthDate                 string     `json:"birthDate,omitempty"`
	ProfileImage              string     `json:"profileImage,omitempty"`
	ScreenRecording           string     `json:"screenRecording,omitempty"`
	ScreenRecordingThumbnail  string     `json:"screenRecordingThumbnail,omitempty"`
	ScreenRecordingFileName   string     `json:"screenRecordingFileName,omitempty"`
	ScreenRecordingUploadedAt *time.Time `json:"screenRecordingUploadedAt,omitempty"`
}

// ProfilePatch is a partial write against a profile document. Nil fields are
// left untouched by the merge; a patch applied to a missing document creates
// one containing exactly the supplied fields.
type ProfilePatch struct {
	Email                     *string
	FirstName                 *string
	BirthDate                 *string
	ProfileImage              *string
	ScreenRecording           *string
	ScreenRecordingThumbnail  *string
	ScreenRecordingFileName   *string
	ScreenRecordingUploadedAt *time.Time
}

// DeviceSession records the backend-side session issued at sign-in.
type DeviceSession struct {
	Token     string
	AccountID string
	IssuedAt  time.Time
}

// MediaKind distinguishes the two upload flows.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// UploadTask tracks a single in-flight media upload. Tasks are transient and
// never persisted.
type UploadTask struct {
	ID         string
	AccountID  string
	Kind       MediaKind
	SourcePath string
	FileName   string
}

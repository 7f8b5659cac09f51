package media

import "errors"

var (
	// ErrNoAccount indicates an upload was attempted with no authenticated account.
	ErrNoAccount = errors.New("no authenticated account")
	// ErrThumbnailerUnavailable indicates the thumbnail generator is not configured.
	ErrThumbnailerUnavailable = errors.New("thumbnail generator unavailable")
)

package routeguard

import (
	"net/http"
	"strings"
)

// Navigation anchors for the two areas.
const (
	AppRoot        = "/app"
	SignInLocation = "/signin"
)

// InAppArea reports whether a location falls inside the authenticated area.
func InAppArea(location string) bool {
	return location == AppRoot || strings.HasPrefix(location, AppRoot+"/")
}

// Decide evaluates the two-state redirect rule: a signed-in user outside the
// app area is sent to its root, a signed-out user inside it is sent to the
// sign-in entry point. Any other combination stays put.
func Decide(signedIn bool, location string) (string, bool) {
	inApp := InAppArea(location)
	switch {
	case signedIn && !inApp:
		return AppRoot, true
	case !signedIn && inApp:
		return SignInLocation, true
	default:
		return "", false
	}
}

// SessionReader is the slice of the session store the guard observes.
type SessionReader interface {
	SignedIn() bool
}

// Middleware applies the redirect rule to every request it wraps.
func Middleware(sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if target, redirect := Decide(sessions.SignedIn(), r.URL.Path); redirect {
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package handlers

import (
	"fmt"
	"net/http"
)

// PageHandler serves the two navigation areas the route guard redirects
// between. The real screens live in the mobile client; these endpoints exist
// so the guard has concrete locations to steer.
type PageHandler struct{}

// App is the authenticated-area root.
func (PageHandler) App(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "sparkmatch app")
}

// SignIn is the unauthenticated entry point.
func (PageHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "sparkmatch sign in")
}

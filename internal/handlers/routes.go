package handlers

import (
	"net/http"

	"github.com/sparkmatch/backend/internal/routeguard"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Sessions: deps.Sessions, Limiter: deps.AuthLimiter}
	sess := SessionHandler{Sessions: deps.Sessions}
	profile := ProfileHandler{Sessions: deps.Sessions, Media: deps.Media, Uploads: deps.Uploads}
	feedHandler := FeedHandler{Feed: deps.Feed}
	pages := PageHandler{}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/auth/signin", auth.SignIn)
	mux.HandleFunc("/api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("/api/v1/auth/signout", auth.SignOut)
	mux.HandleFunc("/api/v1/session", sess.Get)
	mux.HandleFunc("/api/v1/profile", profile.Get)
	mux.HandleFunc("/api/v1/profile/image", profile.UploadImage)
	mux.HandleFunc("/api/v1/profile/video", profile.UploadVideo)
	mux.HandleFunc("/api/v1/feed", feedHandler.List)

	guard := routeguard.Middleware(deps.Sessions)
	mux.Handle("/app", guard(http.HandlerFunc(pages.App)))
	mux.Handle("/app/", guard(http.HandlerFunc(pages.App)))
	mux.Handle("/signin", guard(http.HandlerFunc(pages.SignIn)))
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Sessions    SessionStore
	Media       MediaUploader
	Uploads     UploadQueue
	Feed        FeedLoader
	AuthLimiter RateLimiter
}

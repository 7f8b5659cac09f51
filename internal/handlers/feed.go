package handlers

import (
	"net/http"

	"github.com/sparkmatch/backend/internal/feed"
	"github.com/sparkmatch/backend/internal/logging"
)

// FeedHandler serves the profile feed.
type FeedHandler struct {
	Feed FeedLoader
}

type feedResponse struct {
	Items []feed.Item `json:"items"`
	Count int         `json:"count"`
}

// List handles GET /api/v1/feed requests. `?refresh=1` is the pull-to-refresh
// trigger: it bypasses the cache and re-runs the full fetch.
func (h FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Feed == nil {
		logger.Error("feed loader unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "feed unavailable"})
		return
	}

	var (
		items []feed.Item
		err   error
	)
	if r.URL.Query().Get("refresh") != "" {
		items, err = h.Feed.Refresh(ctx)
	} else {
		items, err = h.Feed.Load(ctx)
	}
	if err != nil {
		logger.Error("load feed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load feed"})
		return
	}

	if items == nil {
		items = []feed.Item{}
	}

	respondJSON(ctx, w, http.StatusOK, feedResponse{Items: items, Count: len(items)})
}

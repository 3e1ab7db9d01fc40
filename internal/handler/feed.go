package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/snippet-oracle/snippet-oracle/internal/auth"
	"github.com/snippet-oracle/snippet-oracle/internal/service"
)

// FeedHandler serves the landing-page discovery view and tag autocomplete.
type FeedHandler struct {
	feeds  *service.FeedService
	logger *slog.Logger
}

func NewFeedHandler(feeds *service.FeedService, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{feeds: feeds, logger: logger}
}

// HandleDefaultView returns the content shown before any search is typed.
func (h *FeedHandler) HandleDefaultView(w http.ResponseWriter, r *http.Request) {
	view, err := h.feeds.DefaultView(r.Context(), auth.ViewerFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleSearchTags serves tag autocomplete.
func (h *FeedHandler) HandleSearchTags(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	tags, err := h.feeds.SearchTags(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"tags": tags})
}

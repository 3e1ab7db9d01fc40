package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/snippet-oracle/snippet-oracle/internal/auth"
	"github.com/snippet-oracle/snippet-oracle/internal/model"
	"github.com/snippet-oracle/snippet-oracle/internal/service"
)

// ProfileHandler serves public profiles, the viewer's own profile edits, and
// user autocomplete.
type ProfileHandler struct {
	users    *service.UserService
	snippets *service.SnippetService
	logger   *slog.Logger
}

func NewProfileHandler(users *service.UserService, snippets *service.SnippetService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{users: users, snippets: snippets, logger: logger}
}

type profileResponse struct {
	Name      string                 `json:"name"`
	Bio       string                 `json:"bio"`
	AvatarURL string                 `json:"avatarUrl"`
	Links     []string               `json:"links"`
	Snippets  []model.SnippetSummary `json:"snippets"`
}

// HandleProfile returns a user's public profile with their snippets as the
// viewer may see them.
func (h *ProfileHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	user, err := h.users.Profile(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}

	snippets, err := h.snippets.ListByOwner(r.Context(), user.ID, auth.ViewerFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if snippets == nil {
		snippets = []model.SnippetSummary{}
	}

	writeJSON(w, http.StatusOK, profileResponse{
		Name:      user.Name,
		Bio:       user.Bio,
		AvatarURL: user.AvatarURL,
		Links:     user.Links,
		Snippets:  snippets,
	})
}

type profileUpdateRequest struct {
	Bio       string   `json:"bio"`
	AvatarURL string   `json:"avatarUrl"`
	Links     []string `json:"links"`
}

// HandleUpdateProfile edits the authenticated user's own profile.
func (h *ProfileHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	viewer := auth.ViewerFromContext(r.Context())
	if err := h.users.UpdateProfile(r.Context(), viewer.UserID, req.Bio, req.AvatarURL, req.Links); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSearchUsers serves @-mention autocomplete.
func (h *ProfileHandler) HandleSearchUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	users, err := h.users.SearchUsers(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if users == nil {
		users = []model.AuthorSummary{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.AuthorSummary{"users": users})
}

package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/snippet-oracle/snippet-oracle/internal/auth"
	"github.com/snippet-oracle/snippet-oracle/internal/service"
)

// SnippetHandler serves snippet CRUD, likes, grants, and comments.
type SnippetHandler struct {
	snippets *service.SnippetService
	logger   *slog.Logger
}

func NewSnippetHandler(snippets *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{snippets: snippets, logger: logger}
}

type snippetRequest struct {
	Name            string   `json:"name"`
	Code            string   `json:"code"`
	Description     string   `json:"description"`
	Tags            []string `json:"tags"`
	IsPublic        bool     `json:"isPublic"`
	ParentSnippetID *int64   `json:"parentSnippetId"`
	Permitted       []string `json:"permitted"`
}

func (req snippetRequest) input() service.SnippetInput {
	return service.SnippetInput{
		Name:            req.Name,
		Code:            req.Code,
		Description:     req.Description,
		Tags:            req.Tags,
		IsPublic:        req.IsPublic,
		ParentSnippetID: req.ParentSnippetID,
		Permitted:       req.Permitted,
	}
}

func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req snippetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	viewer := auth.ViewerFromContext(r.Context())
	snippet, err := h.snippets.Create(r.Context(), viewer.UserID, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snippet)
}

func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	snippet, err := h.snippets.Get(r.Context(), id, auth.ViewerFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req snippetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	viewer := auth.ViewerFromContext(r.Context())
	snippet, err := h.snippets.Update(r.Context(), id, viewer.UserID, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	viewer := auth.ViewerFromContext(r.Context())
	if err := h.snippets.Delete(r.Context(), id, viewer.UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SnippetHandler) HandleGrantees(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	viewer := auth.ViewerFromContext(r.Context())
	names, err := h.snippets.Grantees(r.Context(), id, viewer.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"permitted": names})
}

func (h *SnippetHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	viewer := auth.ViewerFromContext(r.Context())
	if err := h.snippets.Like(r.Context(), id, viewer.UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SnippetHandler) HandleUnlike(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	viewer := auth.ViewerFromContext(r.Context())
	if err := h.snippets.Unlike(r.Context(), id, viewer.UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type commentRequest struct {
	Content  string `json:"content"`
	ParentID *int64 `json:"parentId"`
}

func (h *SnippetHandler) HandleComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req commentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	viewer := auth.ViewerFromContext(r.Context())
	comment, err := h.snippets.Comment(r.Context(), id, viewer.UserID, req.ParentID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *SnippetHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	comments, err := h.snippets.Comments(r.Context(), id, auth.ViewerFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *SnippetHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "commentId")
	if !ok {
		return
	}

	viewer := auth.ViewerFromContext(r.Context())
	if err := h.snippets.DeleteComment(r.Context(), id, viewer.UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses a chi URL parameter as an id, writing a 400 on garbage.
func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "id must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

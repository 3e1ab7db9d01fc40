package handler

import (
	"log/slog"
	"net/http"

	"github.com/snippet-oracle/snippet-oracle/internal/auth"
	"github.com/snippet-oracle/snippet-oracle/internal/model"
	"github.com/snippet-oracle/snippet-oracle/internal/search"
)

// SearchHandler serves structured and smart search.
//
// GET /api/search?q=...&mine=1   structured lexical search
// GET /api/smart-search?q=...    hybrid name + semantic search
type SearchHandler struct {
	engine *search.Engine
	logger *slog.Logger
}

func NewSearchHandler(engine *search.Engine, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{engine: engine, logger: logger}
}

func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	viewer := auth.ViewerFromContext(r.Context())

	mode := model.AccessPublicAndPermitted
	if r.URL.Query().Get("mine") == "1" {
		mode = model.AccessOwnerOnly
	}

	q := search.Parse(r.URL.Query().Get("q"))
	results, err := h.engine.Search(r.Context(), q, viewer, mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: emptyIfNil(results)})
}

func (h *SearchHandler) HandleSmartSearch(w http.ResponseWriter, r *http.Request) {
	viewer := auth.ViewerFromContext(r.Context())

	results, err := h.engine.SmartSearch(r.Context(), r.URL.Query().Get("q"), viewer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: emptyIfNil(results)})
}

type searchResponse struct {
	Results []model.SnippetSummary `json:"results"`
}

// emptyIfNil keeps "no results" serialized as [] rather than null.
func emptyIfNil(results []model.SnippetSummary) []model.SnippetSummary {
	if results == nil {
		return []model.SnippetSummary{}
	}
	return results
}

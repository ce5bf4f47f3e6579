package handlers

import (
	"net/http"

	"github.com/vidtweet/backend/internal/apperr"
	"github.com/vidtweet/backend/internal/query"
)

// SearchHandler serves text search.
type SearchHandler struct {
	base
	Search Searcher
}

// Handle implements GET /search.
func (h SearchHandler) Handle(w http.ResponseWriter, r *http.Request) {
	text, p, err := query.ParseSearch(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if h.Search == nil {
		h.fail(w, r, apperr.New(apperr.Unavailable, "search is unavailable"))
		return
	}

	result, err := h.Search.Search(r.Context(), text, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, result, "Search results fetched successfully")
}

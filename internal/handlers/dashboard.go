package handlers

import (
	"net/http"

	"github.com/vidtweet/backend/internal/query"
)

// DashboardHandler serves the caller's channel dashboard.
type DashboardHandler struct {
	base
	Views DashboardViews
}

// Stats handles GET /dashboard/stats.
func (h DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Views.ChannelStats(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, stats, "Channel stats fetched successfully")
}

// Videos handles GET /dashboard/videos.
func (h DashboardHandler) Videos(w http.ResponseWriter, r *http.Request) {
	p, err := query.ParsePagination(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.Views.ChannelVideos(r.Context(), caller(r).UserID, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, page, "Channel videos fetched successfully")
}

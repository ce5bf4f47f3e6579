package handlers

import (
	"net/http"

	"github.com/vidtweet/backend/internal/apperr"
	"github.com/vidtweet/backend/internal/models"
	"github.com/vidtweet/backend/internal/query"
	"github.com/vidtweet/backend/internal/toggle"
)

// LikeHandler implements the like toggles and the liked-videos list.
type LikeHandler struct {
	base
	Likes LikeStore
	Views LikeViews
}

// ToggleVideo handles POST /likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeKindVideo, "videoId")
}

// ToggleComment handles POST /likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeKindComment, "commentId")
}

// ToggleTweet handles POST /likes/toggle/t/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeKindTweet, "tweetId")
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, kind models.LikeKind, param string) {
	ctx := r.Context()
	targetID, err := pathID(r, param)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	target := models.LikeTarget{Kind: kind, ID: targetID}

	userID := caller(r).UserID
	visible, err := h.Likes.TargetVisible(ctx, userID, target)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !visible {
		h.fail(w, r, apperr.Newf(apperr.NotFound, "%s not found", kind))
		return
	}

	state, err := toggle.Flip(ctx, h.Likes.Relation(userID, target))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	total, err := h.Likes.Count(ctx, target)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	message := "Unliked successfully"
	if state == toggle.Present {
		message = "Liked successfully"
	}
	h.ok(w, r, http.StatusOK, models.LikeToggle{
		TargetID:   targetID,
		Kind:       kind,
		Liked:      state == toggle.Present,
		TotalLikes: total,
	}, message)
}

// LikedVideos handles GET /likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	p, err := query.ParsePagination(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.Views.LikedVideos(r.Context(), caller(r).UserID, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, page, "Liked videos fetched successfully")
}

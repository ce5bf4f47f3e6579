package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtweet/backend/internal/models"
	"github.com/vidtweet/backend/internal/query"
	"github.com/vidtweet/backend/internal/repositories"
)

// CommentHandler implements the comment endpoints.
type CommentHandler struct {
	base
	Comments CommentStore
	Videos   VideoStore
	Views    CommentViews
}

type commentRequest struct {
	Content string `json:"content" validate:"notblank,max=2000"`
}

// List handles GET /comments/{videoId}.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	videoID, err := pathID(r, "videoId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := query.ParsePagination(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.Views.CommentFeed(r.Context(), videoID, caller(r).UserID, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, page, "Comments fetched successfully")
}

// Create handles POST /comments/{videoId}.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videoID, err := pathID(r, "videoId")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req commentRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	id := caller(r)
	video, err := h.Videos.FindByID(ctx, videoID)
	if err == nil && !video.IsPublished && video.OwnerID != id.UserID {
		err = repositories.ErrNotFound
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	now := h.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   id.UserID,
		Content:   strings.TrimSpace(req.Content),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Comments.Create(ctx, comment); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusCreated, comment, "Comment added successfully")
}

// Update handles PATCH /comments/c/{commentId}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	comment, ok := h.ownedComment(w, r, "update this comment")
	if !ok {
		return
	}

	updated, err := h.Comments.UpdateContent(r.Context(), comment.ID, strings.TrimSpace(req.Content), h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, updated, "Comment successfully updated")
}

// Delete handles DELETE /comments/c/{commentId}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	comment, ok := h.ownedComment(w, r, "delete this comment")
	if !ok {
		return
	}

	if err := h.Comments.Delete(r.Context(), comment.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, nil, "Comment deleted successfully")
}

func (h CommentHandler) ownedComment(w http.ResponseWriter, r *http.Request, action string) (models.Comment, bool) {
	commentID, err := pathID(r, "commentId")
	if err != nil {
		h.fail(w, r, err)
		return models.Comment{}, false
	}
	comment, err := h.Comments.FindByID(r.Context(), commentID)
	if err != nil {
		h.fail(w, r, err)
		return models.Comment{}, false
	}
	if err := requireOwner(comment.OwnerID, caller(r), action); err != nil {
		h.fail(w, r, err)
		return models.Comment{}, false
	}
	return comment, true
}

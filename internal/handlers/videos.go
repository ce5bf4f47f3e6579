package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtweet/backend/internal/logging"
	"github.com/vidtweet/backend/internal/models"
	"github.com/vidtweet/backend/internal/query"
	"github.com/vidtweet/backend/internal/validation"
)

// VideoHandler implements the video endpoints.
type VideoHandler struct {
	base
	Videos         VideoStore
	Views          VideoViews
	Media          MediaUploads
	Janitor        BlobJanitor
	MaxUploadBytes int64
}

type publishVideoRequest struct {
	Title       string `form:"title" validate:"notblank,max=200"`
	Description string `form:"description" validate:"notblank,max=5000"`
}

type updateVideoRequest struct {
	Title       string `json:"title" validate:"omitempty,notblank,max=200"`
	Description string `json:"description" validate:"omitempty,max=5000"`
}

// Public handles GET /videos/public.
func (h VideoHandler) Public(w http.ResponseWriter, r *http.Request) {
	p, err := query.ParsePagination(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.Views.PublicVideos(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, page, "Videos fetched successfully")
}

// List handles GET /videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := query.ParseVideoList(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.Views.VideoFeed(r.Context(), q, caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, page, "Videos fetched successfully")
}

// Publish handles POST /videos.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := parseMultipart(w, r, h.MaxUploadBytes); err != nil {
		h.fail(w, r, err)
		return
	}

	req := publishVideoRequest{Title: formValue(r, "title"), Description: formValue(r, "description")}
	if err := validation.Struct(req); err != nil {
		h.fail(w, r, err)
		return
	}
	videoFile, err := requireFile(r, "videoFile")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	thumbFile, err := requireFile(r, "thumbnail")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	videoURL, duration, err := h.Media.StoreVideo(ctx, videoFile)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	thumbURL, err := h.Media.Store(ctx, thumbFile)
	if err != nil {
		discardUploads(ctx, h.Janitor, videoURL)
		h.fail(w, r, err)
		return
	}

	now := h.now()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      caller(r).UserID,
		Title:        req.Title,
		Description:  req.Description,
		VideoURL:     videoURL,
		ThumbnailURL: thumbURL,
		Duration:     duration,
		IsPublished:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.Videos.Create(ctx, video); err != nil {
		discardUploads(ctx, h.Janitor, videoURL, thumbURL)
		h.fail(w, r, err)
		return
	}

	logging.FromContext(ctx).Info("video published", "videoId", video.ID, "duration", duration)
	h.ok(w, r, http.StatusCreated, video, "Video published successfully")
}

// Get handles GET /videos/{videoId}. Every visible fetch counts as a view and
// the returned count includes it.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videoID, err := pathID(r, "videoId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	viewer := caller(r).UserID

	video, err := h.Views.VideoDetail(ctx, videoID, viewer)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Videos.IncrementViews(ctx, videoID); err != nil {
		h.fail(w, r, err)
		return
	}
	video.Views++

	h.ok(w, r, http.StatusOK, video, "Video fetched successfully")
}

// Update handles PATCH /videos/{videoId}. It accepts either a JSON body or a
// multipart form carrying an optional replacement thumbnail.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateVideoRequest
	multipartBody := isMultipart(r)
	if multipartBody {
		if err := parseMultipart(w, r, h.MaxUploadBytes); err != nil {
			h.fail(w, r, err)
			return
		}
		req = updateVideoRequest{Title: formValue(r, "title"), Description: formValue(r, "description")}
		if err := validation.Struct(req); err != nil {
			h.fail(w, r, err)
			return
		}
	} else if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	video, ok := h.ownedVideo(w, r, "update this video")
	if !ok {
		return
	}

	var thumbURL string
	if fh := formFile(r, "thumbnail"); multipartBody && fh != nil {
		url, err := h.Media.Store(ctx, fh)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		thumbURL = url
	}

	previousThumb := video.ThumbnailURL
	if req.Title != "" {
		video.Title = strings.TrimSpace(req.Title)
	}
	if req.Description != "" {
		video.Description = strings.TrimSpace(req.Description)
	}
	if thumbURL != "" {
		video.ThumbnailURL = thumbURL
	}
	video.UpdatedAt = h.now()

	updated, err := h.Videos.Update(ctx, video)
	if err != nil {
		discardUploads(ctx, h.Janitor, thumbURL)
		h.fail(w, r, err)
		return
	}
	if thumbURL != "" {
		discardUploads(ctx, h.Janitor, previousThumb)
	}

	h.ok(w, r, http.StatusOK, updated, "Video updated successfully")
}

// Delete handles DELETE /videos/{videoId}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	video, ok := h.ownedVideo(w, r, "delete this video")
	if !ok {
		return
	}

	if err := h.Videos.Delete(ctx, video.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	discardUploads(ctx, h.Janitor, video.VideoURL, video.ThumbnailURL)

	h.ok(w, r, http.StatusOK, nil, "Video deleted successfully")
}

// TogglePublish handles PATCH /videos/{videoId}/publish.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	video, ok := h.ownedVideo(w, r, "change the publish status of this video")
	if !ok {
		return
	}

	updated, err := h.Videos.TogglePublish(r.Context(), video.ID, h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, updated, "Video publish status toggled successfully")
}

func (h VideoHandler) ownedVideo(w http.ResponseWriter, r *http.Request, action string) (models.Video, bool) {
	videoID, err := pathID(r, "videoId")
	if err != nil {
		h.fail(w, r, err)
		return models.Video{}, false
	}
	video, err := h.Videos.FindByID(r.Context(), videoID)
	if err != nil {
		h.fail(w, r, err)
		return models.Video{}, false
	}
	if err := requireOwner(video.OwnerID, caller(r), action); err != nil {
		h.fail(w, r, err)
		return models.Video{}, false
	}
	return video, true
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

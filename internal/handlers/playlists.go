package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtweet/backend/internal/models"
	"github.com/vidtweet/backend/internal/query"
	"github.com/vidtweet/backend/internal/repositories"
)

// PlaylistHandler implements the playlist endpoints.
type PlaylistHandler struct {
	base
	Playlists PlaylistStore
	Videos    VideoStore
	Views     PlaylistViews
}

type createPlaylistRequest struct {
	Name        string `json:"name" validate:"notblank,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

type updatePlaylistRequest struct {
	Name        string `json:"name" validate:"omitempty,notblank,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

// Create handles POST /playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	now := h.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     caller(r).UserID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Playlists.Create(r.Context(), playlist); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusCreated, playlist, "Playlist created successfully")
}

// UserPlaylists handles GET /playlists/user/{userId}.
func (h PlaylistHandler) UserPlaylists(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := query.ParsePagination(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.Views.UserPlaylists(r.Context(), userID, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, page, "User playlists fetched successfully")
}

// Get handles GET /playlists/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "playlistId")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.Views.Playlist(r.Context(), playlistID, caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, view, "Playlist fetched successfully")
}

// Update handles PATCH /playlists/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updatePlaylistRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	playlist, ok := h.ownedPlaylist(w, r, "update this playlist")
	if !ok {
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		playlist.Name = name
	}
	if description := strings.TrimSpace(req.Description); description != "" {
		playlist.Description = description
	}
	playlist.UpdatedAt = h.now()

	updated, err := h.Playlists.Update(r.Context(), playlist)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, updated, "Playlist updated successfully")
}

// Delete handles DELETE /playlists/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	playlist, ok := h.ownedPlaylist(w, r, "delete this playlist")
	if !ok {
		return
	}

	if err := h.Playlists.Delete(r.Context(), playlist.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, nil, "Playlist deleted successfully")
}

// AddVideo handles PATCH /playlists/add/{videoId}/{playlistId}. Adding a video
// already in the playlist is a no-op.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playlist, ok := h.ownedPlaylist(w, r, "add videos to this playlist")
	if !ok {
		return
	}
	videoID, err := pathID(r, "videoId")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err == nil && !video.IsPublished && video.OwnerID != playlist.OwnerID {
		err = repositories.ErrNotFound
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Playlists.AddVideo(ctx, playlist.ID, videoID, h.now()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondPlaylist(w, r, playlist.ID, "Video added to playlist successfully")
}

// RemoveVideo handles PATCH /playlists/remove/{videoId}/{playlistId}. Removing
// a video that is not in the playlist is a no-op.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	playlist, ok := h.ownedPlaylist(w, r, "remove videos from this playlist")
	if !ok {
		return
	}
	videoID, err := pathID(r, "videoId")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Playlists.RemoveVideo(r.Context(), playlist.ID, videoID, h.now()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondPlaylist(w, r, playlist.ID, "Video removed from playlist successfully")
}

func (h PlaylistHandler) respondPlaylist(w http.ResponseWriter, r *http.Request, playlistID, message string) {
	view, err := h.Views.Playlist(r.Context(), playlistID, caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, view, message)
}

func (h PlaylistHandler) ownedPlaylist(w http.ResponseWriter, r *http.Request, action string) (models.Playlist, bool) {
	playlistID, err := pathID(r, "playlistId")
	if err != nil {
		h.fail(w, r, err)
		return models.Playlist{}, false
	}
	playlist, err := h.Playlists.FindByID(r.Context(), playlistID)
	if err != nil {
		h.fail(w, r, err)
		return models.Playlist{}, false
	}
	if err := requireOwner(playlist.OwnerID, caller(r), action); err != nil {
		h.fail(w, r, err)
		return models.Playlist{}, false
	}
	return playlist, true
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vidtweet/backend/internal/apperr"
	"github.com/vidtweet/backend/internal/auth"
	"github.com/vidtweet/backend/internal/logging"
	"github.com/vidtweet/backend/internal/models"
	"github.com/vidtweet/backend/internal/query"
	"github.com/vidtweet/backend/internal/repositories"
	"github.com/vidtweet/backend/internal/validation"
)

// UserHandler implements account, session and channel endpoints.
type UserHandler struct {
	base
	Users          UserStore
	Videos         VideoStore
	Sessions       SessionManager
	Views          ChannelViews
	Media          MediaUploads
	Janitor        BlobJanitor
	Limiter        RateLimiter
	TrustedProxies []netip.Prefix
	BcryptCost     int
	SecureCookies  bool
	MaxUploadBytes int64
}

type registerRequest struct {
	FullName string `form:"fullName" validate:"notblank,max=80"`
	Email    string `form:"email" validate:"required,email"`
	Username string `form:"username" validate:"notblank,handle,max=30"`
	Password string `form:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required_without=Username"`
	Username string `json:"username"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName" validate:"notblank,max=80"`
	Email    string `json:"email" validate:"required,email"`
}

type sessionResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

func identityOf(u models.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Email: u.Email, Username: u.Username, FullName: u.FullName}
}

// Register handles POST /users/register.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := throttle(h.Limiter, r, "register", h.TrustedProxies); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := parseMultipart(w, r, h.MaxUploadBytes); err != nil {
		h.fail(w, r, err)
		return
	}

	req := registerRequest{
		FullName: formValue(r, "fullName"),
		Email:    strings.ToLower(formValue(r, "email")),
		Username: strings.ToLower(formValue(r, "username")),
		Password: r.FormValue("password"),
	}
	if err := validation.Struct(req); err != nil {
		h.fail(w, r, err)
		return
	}
	avatarFile, err := requireFile(r, "avatar")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	avatar, err := h.Media.Store(ctx, avatarFile)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var cover string
	if fh := formFile(r, "coverImage"); fh != nil {
		if cover, err = h.Media.Store(ctx, fh); err != nil {
			discardUploads(ctx, h.Janitor, avatar)
			h.fail(w, r, err)
			return
		}
	}

	now := h.now()
	user := models.User{
		ID:            uuid.NewString(),
		Username:      req.Username,
		Email:         req.Email,
		FullName:      req.FullName,
		PasswordHash:  hash,
		AvatarURL:     avatar,
		CoverImageURL: cover,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.Users.Create(ctx, user); err != nil {
		discardUploads(ctx, h.Janitor, avatar, cover)
		if errors.Is(err, repositories.ErrConflict) {
			err = apperr.Wrap(apperr.Conflict, "user with email or username already exists", err)
		}
		h.fail(w, r, err)
		return
	}

	logging.FromContext(ctx).Info("user registered", "userId", user.ID)
	h.ok(w, r, http.StatusCreated, user, "User registered successfully")
}

// Login handles POST /users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := throttle(h.Limiter, r, "login", h.TrustedProxies); err != nil {
		h.fail(w, r, err)
		return
	}

	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	identifier := strings.TrimSpace(req.Email)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Username)
	}

	// Unknown accounts fail like a wrong password so logins do not reveal which accounts exist.
	user, err := h.Users.FindByLogin(ctx, identifier)
	if errors.Is(err, repositories.ErrNotFound) {
		h.fail(w, r, auth.ErrInvalidCredentials)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := auth.ComparePassword(user.PasswordHash, req.Password); err != nil {
		h.fail(w, r, err)
		return
	}

	tokens, err := h.Sessions.Issue(ctx, identityOf(user))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.setSessionCookies(w, tokens)
	h.ok(w, r, http.StatusOK, sessionResponse{User: user, AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, "User logged in successfully")
}

// Logout handles POST /users/logout.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Revoke(r.Context(), caller(r).UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.clearSessionCookies(w)
	h.ok(w, r, http.StatusOK, nil, "User logged out")
}

// RefreshToken handles POST /users/refresh-token. The token is read from the
// refresh cookie, falling back to the JSON body.
func (h UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := throttle(h.Limiter, r, "refresh", h.TrustedProxies); err != nil {
		h.fail(w, r, err)
		return
	}

	var token string
	if c, err := r.Cookie(auth.RefreshCookie); err == nil {
		token = c.Value
	}
	if token == "" && r.ContentLength != 0 {
		var req refreshRequest
		if err := decode(r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
		token = strings.TrimSpace(req.RefreshToken)
	}
	if token == "" {
		h.fail(w, r, apperr.New(apperr.Unauthorized, "unauthorized request"))
		return
	}

	tokens, _, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.setSessionCookies(w, tokens)
	h.ok(w, r, http.StatusOK, map[string]string{
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
	}, "Access token refreshed")
}

// ChangePassword handles POST /users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req changePasswordRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.Users.FindByID(ctx, caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := auth.ComparePassword(user.PasswordHash, req.OldPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			err = apperr.Wrap(apperr.InvalidRequest, "invalid old password", err)
		}
		h.fail(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword, h.BcryptCost)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Users.UpdatePassword(ctx, user.ID, hash, h.now()); err != nil {
		h.fail(w, r, err)
		return
	}

	h.ok(w, r, http.StatusOK, nil, "Password changed successfully")
}

// CurrentUser handles GET /users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.FindByID(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, user, "Current user fetched successfully")
}

// UpdateAccount handles PATCH /users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req updateAccountRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.Users.UpdateAccount(r.Context(), caller(r).UserID, strings.TrimSpace(req.FullName), strings.ToLower(strings.TrimSpace(req.Email)), h.now())
	if errors.Is(err, repositories.ErrConflict) {
		err = apperr.Wrap(apperr.Conflict, "email is already in use", err)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, user, "Account details updated successfully")
}

// UpdateAvatar handles PATCH /users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.Users.UpdateAvatar, "Avatar updated successfully")
}

// UpdateCoverImage handles PATCH /users/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", h.Users.UpdateCoverImage, "Cover image updated successfully")
}

type imageUpdater func(ctx context.Context, id, url string, now time.Time) (string, error)

func (h UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdater, message string) {
	ctx := r.Context()
	if err := parseMultipart(w, r, h.MaxUploadBytes); err != nil {
		h.fail(w, r, err)
		return
	}
	fh, err := requireFile(r, field)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	url, err := h.Media.Store(ctx, fh)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id := caller(r).UserID
	previous, err := update(ctx, id, url, h.now())
	if err != nil {
		discardUploads(ctx, h.Janitor, url)
		h.fail(w, r, err)
		return
	}
	discardUploads(ctx, h.Janitor, previous)

	user, err := h.Users.FindByID(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, user, message)
}

// ChannelProfile handles GET /users/channel/{username}.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	username := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "username")))
	if username == "" {
		h.fail(w, r, apperr.New(apperr.InvalidRequest, "username is missing"))
		return
	}

	profile, err := h.Views.ChannelProfile(r.Context(), username, caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, profile, "User channel fetched successfully")
}

// AddToWatchHistory handles POST /users/watch/{videoId}.
func (h UserHandler) AddToWatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videoID, err := pathID(r, "videoId")
	if err != nil {
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

	if err := h.Users.AddToWatchHistory(ctx, id.UserID, videoID, h.now()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, nil, "Video added to watch history")
}

// WatchHistory handles GET /users/watch-history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	p, err := query.ParsePagination(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.Views.WatchHistory(r.Context(), caller(r).UserID, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, page, "Watch history fetched successfully")
}

func (h UserHandler) setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, h.cookie(auth.AccessCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, h.cookie(auth.RefreshCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func (h UserHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{auth.AccessCookie, auth.RefreshCookie} {
		c := h.cookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (h UserHandler) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}

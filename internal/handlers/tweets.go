package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtweet/backend/internal/models"
	"github.com/vidtweet/backend/internal/query"
)

// TweetHandler implements the tweet endpoints.
type TweetHandler struct {
	base
	Tweets TweetStore
	Views  TweetViews
}

type tweetRequest struct {
	Content string `json:"content" validate:"notblank,max=280"`
}

// List handles GET /tweets.
func (h TweetHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := query.ParsePagination(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.Views.Tweets(r.Context(), caller(r).UserID, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, page, "Fetched all tweets")
}

// Create handles POST /tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req tweetRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	now := h.now()
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   caller(r).UserID,
		Content:   strings.TrimSpace(req.Content),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Tweets.Create(r.Context(), tweet); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusCreated, tweet, "Tweet created successfully")
}

// UserTweets handles GET /tweets/user/{userId}.
func (h TweetHandler) UserTweets(w http.ResponseWriter, r *http.Request) {
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

	page, err := h.Views.UserTweets(r.Context(), userID, caller(r).UserID, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, page, "User tweets fetched successfully")
}

// Update handles PATCH /tweets/{tweetId}.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req tweetRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	tweet, ok := h.ownedTweet(w, r, "update this tweet")
	if !ok {
		return
	}

	updated, err := h.Tweets.UpdateContent(r.Context(), tweet.ID, strings.TrimSpace(req.Content), h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, updated, "Tweet updated successfully")
}

// Delete handles DELETE /tweets/{tweetId}.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tweet, ok := h.ownedTweet(w, r, "delete this tweet")
	if !ok {
		return
	}

	if err := h.Tweets.Delete(r.Context(), tweet.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, nil, "Tweet deleted successfully")
}

func (h TweetHandler) ownedTweet(w http.ResponseWriter, r *http.Request, action string) (models.Tweet, bool) {
	tweetID, err := pathID(r, "tweetId")
	if err != nil {
		h.fail(w, r, err)
		return models.Tweet{}, false
	}
	tweet, err := h.Tweets.FindByID(r.Context(), tweetID)
	if err != nil {
		h.fail(w, r, err)
		return models.Tweet{}, false
	}
	if err := requireOwner(tweet.OwnerID, caller(r), action); err != nil {
		h.fail(w, r, err)
		return models.Tweet{}, false
	}
	return tweet, true
}

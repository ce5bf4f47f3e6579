package handlers

import (
	"net/http"

	"github.com/vidtweet/backend/internal/apperr"
	"github.com/vidtweet/backend/internal/models"
	"github.com/vidtweet/backend/internal/query"
	"github.com/vidtweet/backend/internal/toggle"
)

// SubscriptionHandler implements channel subscriptions.
type SubscriptionHandler struct {
	base
	Users         UserStore
	Subscriptions SubscriptionStore
	Views         SubscriptionViews
}

// Toggle handles POST /subscriptions/c/{channelId}.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	channelID, err := pathID(r, "channelId")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	subscriber := caller(r).UserID
	if channelID == subscriber {
		h.fail(w, r, apperr.New(apperr.InvalidRequest, "you cannot subscribe to your own channel"))
		return
	}
	if _, err := h.Users.FindByID(ctx, channelID); err != nil {
		h.fail(w, r, err)
		return
	}

	state, err := toggle.Flip(ctx, h.Subscriptions.Relation(subscriber, channelID))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	count, err := h.Subscriptions.CountSubscribers(ctx, channelID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	message := "Unsubscribed successfully"
	if state == toggle.Present {
		message = "Subscribed successfully"
	}
	h.ok(w, r, http.StatusOK, models.SubscriptionToggle{
		ChannelID:        channelID,
		Subscribed:       state == toggle.Present,
		SubscribersCount: count,
	}, message)
}

// Subscribers handles GET /subscriptions/subscribers.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	p, err := query.ParsePagination(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.Views.Subscribers(r.Context(), caller(r).UserID, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, page, "Subscribers fetched successfully")
}

// Subscribed handles GET /subscriptions/subscribed.
func (h SubscriptionHandler) Subscribed(w http.ResponseWriter, r *http.Request) {
	p, err := query.ParsePagination(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.Views.SubscribedChannels(r.Context(), caller(r).UserID, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, page, "Subscribed channels fetched successfully")
}

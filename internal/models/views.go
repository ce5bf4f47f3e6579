package models

import "time"

// OwnerSummary is the public slice of a user embedded in other views.
type OwnerSummary struct {
	ID       string `json:"id"`
	Username string `json:"userName"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// VideoRef is the minimal video shape embedded in comments and search results.
type VideoRef struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}

// VideoSummary is a feed entry: a video with its owner attached.
type VideoSummary struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	VideoFile   string       `json:"videoFile"`
	Thumbnail   string       `json:"thumbnail"`
	Duration    float64      `json:"duration"`
	Views       int64        `json:"views"`
	IsPublished bool         `json:"isPublished"`
	CreatedAt   time.Time    `json:"createdAt"`
	Owner       OwnerSummary `json:"owner"`
}

// VideoDetail is a single video with like aggregates relative to the viewer.
type VideoDetail struct {
	VideoSummary
	UpdatedAt  time.Time `json:"updatedAt"`
	LikesCount int64     `json:"likeCount"`
	IsLiked    bool      `json:"isLikedByCurrentUser"`
}

// ChannelProfile is a user viewed as a channel by a (possibly different) requester.
type ChannelProfile struct {
	ID                        string    `json:"id"`
	Username                  string    `json:"userName"`
	FullName                  string    `json:"fullName"`
	Email                     string    `json:"email"`
	Avatar                    string    `json:"avatar"`
	CoverImage                string    `json:"coverImage,omitempty"`
	SubscribersCount          int64     `json:"subscribersCount"`
	ChannelsSubscribedToCount int64     `json:"channelsSubscribedToCount"`
	IsSubscribed              bool      `json:"isSubscribed"`
	CreatedAt                 time.Time `json:"createdAt"`
}

// ChannelStats summarises a channel for its owner's dashboard.
type ChannelStats struct {
	TotalVideos      int64 `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalSubscribers int64 `json:"totalSubscribers"`
	TotalVideoLikes  int64 `json:"totalVideoLikes"`
	TotalTweetLikes  int64 `json:"totalTweetLikes"`
	TotalTweets      int64 `json:"totalTweets"`
}

// ChannelVideo is a dashboard row: an owned video with its like count.
type ChannelVideo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Thumbnail   string    `json:"thumbnail"`
	Views       int64     `json:"views"`
	IsPublished bool      `json:"isPublished"`
	LikesCount  int64     `json:"likesCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// WatchedVideo is a watch-history entry.
type WatchedVideo struct {
	VideoSummary
	WatchedAt time.Time `json:"watchedAt"`
}

// LikedVideo is a video the requester liked.
type LikedVideo struct {
	VideoSummary
	LikedAt time.Time `json:"likedAt"`
}

// CommentView is a comment with its author and video embedded.
type CommentView struct {
	ID         string       `json:"id"`
	Content    string       `json:"content"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
	Owner      OwnerSummary `json:"owner"`
	Video      VideoRef     `json:"video"`
	LikesCount int64        `json:"likesCount"`
	IsLiked    bool         `json:"isLiked"`
}

// TweetView is a tweet with its author and like aggregates relative to the viewer.
type TweetView struct {
	ID         string       `json:"id"`
	Content    string       `json:"content"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
	Owner      OwnerSummary `json:"owner"`
	LikesCount int64        `json:"likesCount"`
	LikedByMe  bool         `json:"likedByMe"`
}

// SubscriptionView lists the other side of a subscription.
type SubscriptionView struct {
	User         OwnerSummary `json:"user"`
	SubscribedAt time.Time    `json:"subscribedAt"`
}

// PlaylistView is a playlist with its owner and resolved videos.
type PlaylistView struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       OwnerSummary   `json:"owner"`
	Videos      []VideoSummary `json:"videos"`
	TotalVideos int            `json:"totalVideos"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// PlaylistSummary is a playlist entry in a listing.
type PlaylistSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TotalVideos int64     `json:"totalVideos"`
	Thumbnail   string    `json:"thumbnail"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SearchResult groups matching channels and videos.
type SearchResult struct {
	Users  []OwnerSummary `json:"users"`
	Videos []VideoRef     `json:"videos"`
}

// LikeToggle reports a like relation after a toggle.
type LikeToggle struct {
	TargetID   string   `json:"targetId"`
	Kind       LikeKind `json:"kind"`
	Liked      bool     `json:"liked"`
	TotalLikes int64    `json:"totalLikes"`
}

// SubscriptionToggle reports a subscription after a toggle.
type SubscriptionToggle struct {
	ChannelID        string `json:"channelId"`
	Subscribed       bool   `json:"subscribed"`
	SubscribersCount int64  `json:"subscribersCount"`
}

// Page is one offset-paginated slice of a larger ordered result.
type Page[T any] struct {
	Items       []T  `json:"items"`
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	HasNextPage bool `json:"hasNextPage"`
}

// NewPage trims a result fetched with limit+1 rows into a Page.
func NewPage[T any](rows []T, page, limit int) Page[T] {
	if rows == nil {
		rows = []T{}
	}
	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}
	return Page[T]{Items: rows, Page: page, Limit: limit, HasNextPage: hasNext}
}

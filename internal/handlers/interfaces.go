package handlers

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/vidtweet/backend/internal/auth"
	"github.com/vidtweet/backend/internal/models"
	"github.com/vidtweet/backend/internal/query"
	"github.com/vidtweet/backend/internal/toggle"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByLogin(ctx context.Context, identifier string) (models.User, error)
	UpdateAccount(ctx context.Context, id, fullName, email string, now time.Time) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, now time.Time) error
	UpdateAvatar(ctx context.Context, id, url string, now time.Time) (string, error)
	UpdateCoverImage(ctx context.Context, id, url string, now time.Time) (string, error)
	AddToWatchHistory(ctx context.Context, userID, videoID string, at time.Time) error
}

// SessionManager issues, rotates and revokes session tokens.
type SessionManager interface {
	Issue(ctx context.Context, id auth.Identity) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, auth.Identity, error)
	Revoke(ctx context.Context, userID string) error
}

// VideoStore captures video mutations.
type VideoStore interface {
	Create(ctx context.Context, v models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	Update(ctx context.Context, v models.Video) (models.Video, error)
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	TogglePublish(ctx context.Context, id string, now time.Time) (models.Video, error)
}

// TweetStore captures tweet mutations.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	UpdateContent(ctx context.Context, id, content string, now time.Time) (models.Tweet, error)
	Delete(ctx context.Context, id string) error
}

// CommentStore captures comment mutations.
type CommentStore interface {
	Create(ctx context.Context, c models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	UpdateContent(ctx context.Context, id, content string, now time.Time) (models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// LikeStore resolves like targets and the like relation between a user and a target.
type LikeStore interface {
	TargetVisible(ctx context.Context, viewerID string, target models.LikeTarget) (bool, error)
	Count(ctx context.Context, target models.LikeTarget) (int64, error)
	Relation(userID string, target models.LikeTarget) toggle.Relation
}

// SubscriptionStore resolves the subscription relation between two users.
type SubscriptionStore interface {
	CountSubscribers(ctx context.Context, channelID string) (int64, error)
	Relation(subscriberID, channelID string) toggle.Relation
}

// PlaylistStore captures playlist mutations.
type PlaylistStore interface {
	Create(ctx context.Context, p models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	Update(ctx context.Context, p models.Playlist) (models.Playlist, error)
	Delete(ctx context.Context, id string) error
	AddVideo(ctx context.Context, playlistID, videoID string, at time.Time) error
	RemoveVideo(ctx context.Context, playlistID, videoID string, at time.Time) error
}

// ChannelViews reads channel-centric views.
type ChannelViews interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string, p query.Pagination) (models.Page[models.WatchedVideo], error)
}

// VideoViews reads video feeds and details.
type VideoViews interface {
	VideoFeed(ctx context.Context, q query.VideoQuery, viewerID string) (models.Page[models.VideoSummary], error)
	PublicVideos(ctx context.Context, p query.Pagination) (models.Page[models.VideoSummary], error)
	VideoDetail(ctx context.Context, videoID, viewerID string) (models.VideoDetail, error)
}

// TweetViews reads tweet feeds.
type TweetViews interface {
	Tweets(ctx context.Context, viewerID string, p query.Pagination) (models.Page[models.TweetView], error)
	UserTweets(ctx context.Context, ownerID, viewerID string, p query.Pagination) (models.Page[models.TweetView], error)
}

// CommentViews reads comment feeds.
type CommentViews interface {
	CommentFeed(ctx context.Context, videoID, viewerID string, p query.Pagination) (models.Page[models.CommentView], error)
}

// LikeViews reads the caller's liked videos.
type LikeViews interface {
	LikedVideos(ctx context.Context, userID string, p query.Pagination) (models.Page[models.LikedVideo], error)
}

// SubscriptionViews reads subscriber lists.
type SubscriptionViews interface {
	Subscribers(ctx context.Context, channelID string, p query.Pagination) (models.Page[models.SubscriptionView], error)
	SubscribedChannels(ctx context.Context, subscriberID string, p query.Pagination) (models.Page[models.SubscriptionView], error)
}

// PlaylistViews reads playlists.
type PlaylistViews interface {
	Playlist(ctx context.Context, playlistID, viewerID string) (models.PlaylistView, error)
	UserPlaylists(ctx context.Context, ownerID string, p query.Pagination) (models.Page[models.PlaylistSummary], error)
}

// DashboardViews reads the channel owner's dashboard.
type DashboardViews interface {
	ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error)
	ChannelVideos(ctx context.Context, ownerID string, p query.Pagination) (models.Page[models.ChannelVideo], error)
}

// Searcher finds channels and videos by text.
type Searcher interface {
	Search(ctx context.Context, text string, p query.Pagination) (models.SearchResult, error)
}

// MediaUploads moves multipart files into blob storage.
type MediaUploads interface {
	Store(ctx context.Context, fh *multipart.FileHeader) (string, error)
	StoreVideo(ctx context.Context, fh *multipart.FileHeader) (string, float64, error)
}

// BlobJanitor deletes blobs that are no longer referenced.
type BlobJanitor interface {
	Enqueue(ctx context.Context, locations ...string) error
}

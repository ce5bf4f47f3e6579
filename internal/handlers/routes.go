package handlers

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidtweet/backend/internal/apperr"
	"github.com/vidtweet/backend/internal/auth"
	"github.com/vidtweet/backend/internal/envelope"
	"github.com/vidtweet/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Logger *slog.Logger
	Out    envelope.Writer
	Now    func() time.Time

	Authenticator auth.Authenticator
	Sessions      SessionManager
	Limiter       RateLimiter
	DB            Pinger

	Users         UserStore
	Videos        VideoStore
	Tweets        TweetStore
	Comments      CommentStore
	Likes         LikeStore
	Subscriptions SubscriptionStore
	Playlists     PlaylistStore

	Views ReadModel

	Media   MediaUploads
	Janitor BlobJanitor

	CORSOrigins    []string
	BcryptCost     int
	SecureCookies  bool
	MaxUploadBytes int64
	// TrustedProxies gates the forwarding headers used for rate limit keys.
	TrustedProxies []netip.Prefix
}

// ReadModel is every read view the API serves.
type ReadModel interface {
	ChannelViews
	VideoViews
	TweetViews
	CommentViews
	LikeViews
	SubscriptionViews
	PlaylistViews
	DashboardViews
	Searcher
}

// NewRouter wires HTTP handlers into a chi router.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	b := base{Out: deps.Out, NowFunc: deps.Now}

	health := HealthHandler{DB: deps.DB}
	users := UserHandler{
		base: b, Users: deps.Users, Videos: deps.Videos, Sessions: deps.Sessions, Views: deps.Views,
		Media: deps.Media, Janitor: deps.Janitor, Limiter: deps.Limiter, TrustedProxies: deps.TrustedProxies,
		BcryptCost: deps.BcryptCost, SecureCookies: deps.SecureCookies, MaxUploadBytes: deps.MaxUploadBytes,
	}
	videos := VideoHandler{base: b, Videos: deps.Videos, Views: deps.Views, Media: deps.Media, Janitor: deps.Janitor, MaxUploadBytes: deps.MaxUploadBytes}
	tweets := TweetHandler{base: b, Tweets: deps.Tweets, Views: deps.Views}
	comments := CommentHandler{base: b, Comments: deps.Comments, Videos: deps.Videos, Views: deps.Views}
	likes := LikeHandler{base: b, Likes: deps.Likes, Views: deps.Views}
	subscriptions := SubscriptionHandler{base: b, Users: deps.Users, Subscriptions: deps.Subscriptions, Views: deps.Views}
	playlists := PlaylistHandler{base: b, Playlists: deps.Playlists, Videos: deps.Videos, Views: deps.Views}
	dashboard := DashboardHandler{base: b, Views: deps.Views}
	search := SearchHandler{base: b, Search: deps.Views}

	requireUser := auth.RequireUser(deps.Authenticator, func(w http.ResponseWriter, r *http.Request, err error) {
		b.fail(w, r, err)
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(logger, deps.Out))
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		b.fail(w, req, apperr.New(apperr.NotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		b.fail(w, req, apperr.New(apperr.InvalidRequest, "method not allowed"))
	})

	r.Get("/healthz", health.Handle)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", users.Register)
			r.Post("/login", users.Login)
			r.Post("/refresh-token", users.RefreshToken)

			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Post("/logout", users.Logout)
				r.Post("/change-password", users.ChangePassword)
				r.Get("/current-user", users.CurrentUser)
				r.Patch("/update-account", users.UpdateAccount)
				r.Patch("/avatar", users.UpdateAvatar)
				r.Patch("/cover-image", users.UpdateCoverImage)
				r.Get("/channel/{username}", users.ChannelProfile)
				r.Post("/watch/{videoId}", users.AddToWatchHistory)
				r.Get("/watch-history", users.WatchHistory)
			})
		})

		r.Route("/videos", func(r chi.Router) {
			r.Get("/public", videos.Public)

			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Get("/", videos.List)
				r.Post("/", videos.Publish)
				r.Get("/{videoId}", videos.Get)
				r.Patch("/{videoId}", videos.Update)
				r.Delete("/{videoId}", videos.Delete)
				r.Patch("/{videoId}/publish", videos.TogglePublish)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Route("/tweets", func(r chi.Router) {
				r.Get("/", tweets.List)
				r.Post("/", tweets.Create)
				r.Get("/user/{userId}", tweets.UserTweets)
				r.Patch("/{tweetId}", tweets.Update)
				r.Delete("/{tweetId}", tweets.Delete)
			})

			r.Route("/comments", func(r chi.Router) {
				r.Get("/{videoId}", comments.List)
				r.Post("/{videoId}", comments.Create)
				r.Patch("/c/{commentId}", comments.Update)
				r.Delete("/c/{commentId}", comments.Delete)
			})

			r.Route("/likes", func(r chi.Router) {
				r.Post("/toggle/v/{videoId}", likes.ToggleVideo)
				r.Post("/toggle/c/{commentId}", likes.ToggleComment)
				r.Post("/toggle/t/{tweetId}", likes.ToggleTweet)
				r.Get("/videos", likes.LikedVideos)
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.Post("/c/{channelId}", subscriptions.Toggle)
				r.Get("/subscribers", subscriptions.Subscribers)
				r.Get("/subscribed", subscriptions.Subscribed)
			})

			r.Route("/playlists", func(r chi.Router) {
				r.Post("/", playlists.Create)
				r.Get("/user/{userId}", playlists.UserPlaylists)
				r.Get("/{playlistId}", playlists.Get)
				r.Patch("/{playlistId}", playlists.Update)
				r.Delete("/{playlistId}", playlists.Delete)
				r.Patch("/add/{videoId}/{playlistId}", playlists.AddVideo)
				r.Patch("/remove/{videoId}/{playlistId}", playlists.RemoveVideo)
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/stats", dashboard.Stats)
				r.Get("/videos", dashboard.Videos)
			})

			r.Get("/search", search.Handle)
		})
	})

	return r
}

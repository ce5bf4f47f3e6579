package handlers

import (
	"context"
	"mime/multipart"
	"strings"
	"sync"
	"time"

	"github.com/vidtweet/backend/internal/models"
	"github.com/vidtweet/backend/internal/query"
	"github.com/vidtweet/backend/internal/repositories"
	"github.com/vidtweet/backend/internal/toggle"
)

type inMemoryUserStore struct {
	mu      sync.Mutex
	users   map[string]models.User
	watched map[string][]string
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{users: make(map[string]models.User), watched: make(map[string][]string)}
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) FindByLogin(_ context.Context, identifier string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identifier = strings.ToLower(identifier)
	for _, u := range s.users {
		if u.Email == identifier || u.Username == identifier {
			return u, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) UpdateAccount(_ context.Context, id, fullName, email string, now time.Time) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.FullName, user.Email, user.UpdatedAt = fullName, email, now
	s.users[id] = user
	return user, nil
}

func (s *inMemoryUserStore) UpdatePassword(_ context.Context, id, hash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.PasswordHash, user.UpdatedAt = hash, now
	s.users[id] = user
	return nil
}

func (s *inMemoryUserStore) UpdateAvatar(_ context.Context, id, url string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return "", repositories.ErrNotFound
	}
	previous := user.AvatarURL
	user.AvatarURL, user.UpdatedAt = url, now
	s.users[id] = user
	return previous, nil
}

func (s *inMemoryUserStore) UpdateCoverImage(_ context.Context, id, url string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return "", repositories.ErrNotFound
	}
	previous := user.CoverImageURL
	user.CoverImageURL, user.UpdatedAt = url, now
	s.users[id] = user
	return previous, nil
}

func (s *inMemoryUserStore) AddToWatchHistory(_ context.Context, userID, videoID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.watched[userID] {
		if id == videoID {
			return nil
		}
	}
	s.watched[userID] = append(s.watched[userID], videoID)
	return nil
}

type inMemoryVideoStore struct {
	mu     sync.Mutex
	videos map[string]models.Video
}

func newInMemoryVideoStore(videos ...models.Video) *inMemoryVideoStore {
	s := &inMemoryVideoStore{videos: make(map[string]models.Video)}
	for _, v := range videos {
		s.videos[v.ID] = v
	}
	return s
}

func (s *inMemoryVideoStore) Create(_ context.Context, v models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[v.ID] = v
	return nil
}

func (s *inMemoryVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return v, nil
}

func (s *inMemoryVideoStore) Update(_ context.Context, v models.Video) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[v.ID]; !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	s.videos[v.ID] = v
	return v, nil
}

func (s *inMemoryVideoStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.videos, id)
	return nil
}

func (s *inMemoryVideoStore) IncrementViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	v.Views++
	s.videos[id] = v
	return nil
}

func (s *inMemoryVideoStore) TogglePublish(_ context.Context, id string, now time.Time) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	v.IsPublished = !v.IsPublished
	v.UpdatedAt = now
	s.videos[id] = v
	return v, nil
}

// relationSet backs both like and subscription relations with a set of keys.
type relationSet struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newRelationSet() *relationSet {
	return &relationSet{keys: make(map[string]bool)}
}

func (s *relationSet) relation(name, actor, target string) toggle.Relation {
	return &setRelation{set: s, name: name, key: actor + "|" + target}
}

func (s *relationSet) count(suffix string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key := range s.keys {
		if strings.HasSuffix(key, "|"+suffix) {
			n++
		}
	}
	return n
}

type setRelation struct {
	set  *relationSet
	name string
	key  string
}

func (r *setRelation) Name() string { return r.name }

func (r *setRelation) Exists(context.Context) (bool, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()
	return r.set.keys[r.key], nil
}

func (r *setRelation) Create(context.Context) error {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()
	if r.set.keys[r.key] {
		return toggle.ErrDuplicate
	}
	r.set.keys[r.key] = true
	return nil
}

func (r *setRelation) Remove(context.Context) (bool, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()
	removed := r.set.keys[r.key]
	delete(r.set.keys, r.key)
	return removed, nil
}

// inMemoryLikeStore resolves video targets through videos with the same
// visibility rule as the database; other kinds are looked up in targets.
type inMemoryLikeStore struct {
	set     *relationSet
	targets map[string]bool
	videos  *inMemoryVideoStore
}

func (s *inMemoryLikeStore) TargetVisible(ctx context.Context, viewerID string, target models.LikeTarget) (bool, error) {
	if target.Kind == models.LikeKindVideo && s.videos != nil {
		v, err := s.videos.FindByID(ctx, target.ID)
		if err != nil {
			return false, nil
		}
		return v.IsPublished || v.OwnerID == viewerID, nil
	}
	return s.targets[string(target.Kind)+":"+target.ID], nil
}

func (s *inMemoryLikeStore) Count(_ context.Context, target models.LikeTarget) (int64, error) {
	return s.set.count(string(target.Kind) + ":" + target.ID), nil
}

func (s *inMemoryLikeStore) Relation(userID string, target models.LikeTarget) toggle.Relation {
	return s.set.relation("like_"+string(target.Kind), userID, string(target.Kind)+":"+target.ID)
}

type inMemorySubscriptionStore struct {
	set *relationSet
}

func (s *inMemorySubscriptionStore) CountSubscribers(_ context.Context, channelID string) (int64, error) {
	return s.set.count(channelID), nil
}

func (s *inMemorySubscriptionStore) Relation(subscriberID, channelID string) toggle.Relation {
	return s.set.relation("subscription", subscriberID, channelID)
}

type mediaStub struct {
	mu       sync.Mutex
	stored   []string
	duration float64
	err      error
}

func (m *mediaStub) Store(_ context.Context, fh *multipart.FileHeader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	url := "https://cdn.example.com/" + fh.Filename
	m.stored = append(m.stored, url)
	return url, nil
}

func (m *mediaStub) StoreVideo(ctx context.Context, fh *multipart.FileHeader) (string, float64, error) {
	url, err := m.Store(ctx, fh)
	return url, m.duration, err
}

type janitorStub struct {
	mu        sync.Mutex
	locations []string
}

func (j *janitorStub) Enqueue(_ context.Context, locations ...string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, l := range locations {
		if l != "" {
			j.locations = append(j.locations, l)
		}
	}
	return nil
}

// viewsStub serves canned read views.
type viewsStub struct {
	videos   *inMemoryVideoStore
	lastFeed query.VideoQuery
	feedErr  error
}

func (v *viewsStub) ChannelProfile(_ context.Context, username, _ string) (models.ChannelProfile, error) {
	return models.ChannelProfile{Username: username}, nil
}

func (v *viewsStub) WatchHistory(_ context.Context, _ string, p query.Pagination) (models.Page[models.WatchedVideo], error) {
	return models.NewPage[models.WatchedVideo](nil, p.Page, p.Limit), nil
}

func (v *viewsStub) VideoFeed(_ context.Context, q query.VideoQuery, _ string) (models.Page[models.VideoSummary], error) {
	v.lastFeed = q
	return models.NewPage[models.VideoSummary](nil, q.Page, q.Limit), v.feedErr
}

func (v *viewsStub) PublicVideos(_ context.Context, p query.Pagination) (models.Page[models.VideoSummary], error) {
	return models.NewPage[models.VideoSummary](nil, p.Page, p.Limit), nil
}

func (v *viewsStub) VideoDetail(ctx context.Context, videoID, viewerID string) (models.VideoDetail, error) {
	video, err := v.videos.FindByID(ctx, videoID)
	if err != nil || (!video.IsPublished && video.OwnerID != viewerID) {
		return models.VideoDetail{}, repositories.ErrNotFound
	}
	return models.VideoDetail{VideoSummary: models.VideoSummary{ID: video.ID, Title: video.Title, Views: video.Views}}, nil
}

func (v *viewsStub) Tweets(_ context.Context, _ string, p query.Pagination) (models.Page[models.TweetView], error) {
	return models.NewPage[models.TweetView](nil, p.Page, p.Limit), nil
}

func (v *viewsStub) UserTweets(_ context.Context, _, _ string, p query.Pagination) (models.Page[models.TweetView], error) {
	return models.NewPage[models.TweetView](nil, p.Page, p.Limit), nil
}

func (v *viewsStub) CommentFeed(_ context.Context, _, _ string, p query.Pagination) (models.Page[models.CommentView], error) {
	return models.NewPage[models.CommentView](nil, p.Page, p.Limit), nil
}

func (v *viewsStub) LikedVideos(_ context.Context, _ string, p query.Pagination) (models.Page[models.LikedVideo], error) {
	return models.NewPage[models.LikedVideo](nil, p.Page, p.Limit), nil
}

func (v *viewsStub) Subscribers(_ context.Context, _ string, p query.Pagination) (models.Page[models.SubscriptionView], error) {
	return models.NewPage[models.SubscriptionView](nil, p.Page, p.Limit), nil
}

func (v *viewsStub) SubscribedChannels(_ context.Context, _ string, p query.Pagination) (models.Page[models.SubscriptionView], error) {
	return models.NewPage[models.SubscriptionView](nil, p.Page, p.Limit), nil
}

func (v *viewsStub) Playlist(_ context.Context, playlistID, _ string) (models.PlaylistView, error) {
	return models.PlaylistView{ID: playlistID, Videos: []models.VideoSummary{}}, nil
}

func (v *viewsStub) UserPlaylists(_ context.Context, _ string, p query.Pagination) (models.Page[models.PlaylistSummary], error) {
	return models.NewPage[models.PlaylistSummary](nil, p.Page, p.Limit), nil
}

func (v *viewsStub) ChannelStats(context.Context, string) (models.ChannelStats, error) {
	return models.ChannelStats{}, nil
}

func (v *viewsStub) ChannelVideos(_ context.Context, _ string, p query.Pagination) (models.Page[models.ChannelVideo], error) {
	return models.NewPage[models.ChannelVideo](nil, p.Page, p.Limit), nil
}

func (v *viewsStub) Search(context.Context, string, query.Pagination) (models.SearchResult, error) {
	return models.SearchResult{Users: []models.OwnerSummary{}, Videos: []models.VideoRef{}}, nil
}

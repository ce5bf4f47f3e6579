package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtweet/backend/internal/auth"
	"github.com/vidtweet/backend/internal/dbtest"
	"github.com/vidtweet/backend/internal/models"
	"github.com/vidtweet/backend/internal/toggle"
)

var testPool *pgxpool.Pool

const testTimeout = 5 * time.Second

func TestMain(m *testing.M) {
	pool, stop, err := dbtest.Start(context.Background(), filepath.Join("..", "..", "migrations"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	testPool = pool
	code := m.Run()
	stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateFindAndUpdate(t *testing.T) {
	ctx := context.Background()
	dbtest.Reset(t, testPool)

	repo := NewPostgresUserRepository(testPool, testTimeout)
	user := createTestUser(t, repo, "Alice")

	dup := user
	dup.ID = uuid.NewString()
	dup.Email = "other@example.com"
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate username, got %v", err)
	}

	for _, login := range []string{"alice", "ALICE@example.com"} {
		fetched, err := repo.FindByLogin(ctx, login)
		if err != nil {
			t.Fatalf("find by login %q: %v", login, err)
		}
		if fetched.ID != user.ID || fetched.PasswordHash != user.PasswordHash {
			t.Fatalf("unexpected user fetched: %+v", fetched)
		}
	}

	updated, err := repo.UpdateAccount(ctx, user.ID, "Alice Liddell", "Liddell@Example.com", time.Now().UTC())
	if err != nil {
		t.Fatalf("update account: %v", err)
	}
	if updated.FullName != "Alice Liddell" || updated.Email != "liddell@example.com" {
		t.Fatalf("expected updated fields to persist, got %+v", updated)
	}

	if err := repo.UpdatePassword(ctx, uuid.NewString(), "hash", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing user, got %v", err)
	}

	previous, err := repo.UpdateAvatar(ctx, user.ID, "https://cdn.example.com/new.png", time.Now().UTC())
	if err != nil {
		t.Fatalf("update avatar: %v", err)
	}
	if previous != user.AvatarURL {
		t.Fatalf("expected previous avatar %q, got %q", user.AvatarURL, previous)
	}

	previous, err = repo.UpdateCoverImage(ctx, user.ID, "https://cdn.example.com/cover.png", time.Now().UTC())
	if err != nil {
		t.Fatalf("update cover: %v", err)
	}
	if previous != "" {
		t.Fatalf("expected no previous cover, got %q", previous)
	}
}

func TestPostgresSessionStore_CompareAndRotate(t *testing.T) {
	ctx := context.Background()
	dbtest.Reset(t, testPool)

	user := createTestUser(t, NewPostgresUserRepository(testPool, testTimeout), "bob")
	sessions := NewPostgresSessionStore(testPool, testTimeout)

	if err := sessions.SaveRefreshToken(ctx, user.ID, "first"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := sessions.RotateRefreshToken(ctx, user.ID, "first", "second"); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if err := sessions.RotateRefreshToken(ctx, user.ID, "first", "third"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected replayed token to be rejected, got %v", err)
	}
	if err := sessions.ClearRefreshToken(ctx, user.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := sessions.RotateRefreshToken(ctx, user.ID, "second", "fourth"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected rotation after logout to fail, got %v", err)
	}
	if err := sessions.SaveRefreshToken(ctx, uuid.NewString(), "x"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected unknown user to fail, got %v", err)
	}
}

func TestPostgresVideoRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	dbtest.Reset(t, testPool)

	owner := createTestUser(t, NewPostgresUserRepository(testPool, testTimeout), "carol")
	videos := NewPostgresVideoRepository(testPool, testTimeout)
	likes := NewPostgresLikeRepository(testPool, testTimeout)
	comments := NewPostgresCommentRepository(testPool, testTimeout)

	video := createTestVideo(t, videos, owner.ID, "Intro", 0, true)

	for i := 0; i < 3; i++ {
		if err := videos.IncrementViews(ctx, video.ID); err != nil {
			t.Fatalf("increment views: %v", err)
		}
	}
	fetched, err := videos.FindByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("find video: %v", err)
	}
	if fetched.Views != 3 {
		t.Fatalf("expected 3 views got %d", fetched.Views)
	}

	toggled, err := videos.TogglePublish(ctx, video.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("toggle publish: %v", err)
	}
	if toggled.IsPublished {
		t.Fatal("expected video to be unpublished")
	}

	comment := models.Comment{ID: uuid.NewString(), VideoID: video.ID, OwnerID: owner.ID, Content: "first", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := comments.Create(ctx, comment); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if _, err := toggle.Flip(ctx, likes.Relation(owner.ID, models.LikeTarget{Kind: models.LikeKindVideo, ID: video.ID})); err != nil {
		t.Fatalf("like video: %v", err)
	}
	if _, err := toggle.Flip(ctx, likes.Relation(owner.ID, models.LikeTarget{Kind: models.LikeKindComment, ID: comment.ID})); err != nil {
		t.Fatalf("like comment: %v", err)
	}

	if err := videos.Delete(ctx, video.ID); err != nil {
		t.Fatalf("delete video: %v", err)
	}
	if _, err := videos.FindByID(ctx, video.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted video to be gone, got %v", err)
	}
	if _, err := comments.FindByID(ctx, comment.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected comment to cascade, got %v", err)
	}

	var remaining int
	if err := testPool.QueryRow(ctx, `SELECT COUNT(*) FROM likes`).Scan(&remaining); err != nil {
		t.Fatalf("count likes: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected likes on deleted video and comments to be removed, %d remain", remaining)
	}

	if err := videos.Delete(ctx, video.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestPostgresLikeRepository_ToggleSequence(t *testing.T) {
	ctx := context.Background()
	dbtest.Reset(t, testPool)

	users := NewPostgresUserRepository(testPool, testTimeout)
	liker := createTestUser(t, users, "dave")
	author := createTestUser(t, users, "erin")

	tweets := NewPostgresTweetRepository(testPool, testTimeout)
	tweet := models.Tweet{ID: uuid.NewString(), OwnerID: author.ID, Content: "hello", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := tweets.Create(ctx, tweet); err != nil {
		t.Fatalf("create tweet: %v", err)
	}

	likes := NewPostgresLikeRepository(testPool, testTimeout)
	target := models.LikeTarget{Kind: models.LikeKindTweet, ID: tweet.ID}

	visible, err := likes.TargetVisible(ctx, liker.ID, target)
	if err != nil || !visible {
		t.Fatalf("expected tweet target to be visible, got %v %v", visible, err)
	}
	if _, err := likes.TargetVisible(ctx, liker.ID, models.LikeTarget{Kind: "post", ID: tweet.ID}); !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint for unknown kind, got %v", err)
	}

	for n := 1; n <= 5; n++ {
		state, err := toggle.Flip(ctx, likes.Relation(liker.ID, target))
		if err != nil {
			t.Fatalf("toggle %d: %v", n, err)
		}
		count, err := likes.Count(ctx, target)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		wantPresent := n%2 == 1
		if bool(state) != wantPresent || (count == 1) != wantPresent {
			t.Fatalf("after %d toggles state=%s count=%d", n, state, count)
		}
	}

	// A second insert of an existing like is reported as a duplicate.
	rel := likes.Relation(author.ID, target)
	if err := rel.Create(ctx); err != nil {
		t.Fatalf("create like: %v", err)
	}
	if err := rel.Create(ctx); !errors.Is(err, toggle.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestPostgresLikeRepository_HiddenTargets(t *testing.T) {
	ctx := context.Background()
	dbtest.Reset(t, testPool)

	users := NewPostgresUserRepository(testPool, testTimeout)
	owner := createTestUser(t, users, "heidi")
	viewer := createTestUser(t, users, "ivan")

	videos := NewPostgresVideoRepository(testPool, testTimeout)
	draft := createTestVideo(t, videos, owner.ID, "draft", 0, false)

	comments := NewPostgresCommentRepository(testPool, testTimeout)
	now := time.Now().UTC()
	comment := models.Comment{ID: uuid.NewString(), VideoID: draft.ID, OwnerID: owner.ID, Content: "note", CreatedAt: now, UpdatedAt: now}
	if err := comments.Create(ctx, comment); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	likes := NewPostgresLikeRepository(testPool, testTimeout)
	tests := []struct {
		name   string
		viewer string
		target models.LikeTarget
		want   bool
	}{
		{name: "draft video for stranger", viewer: viewer.ID, target: models.LikeTarget{Kind: models.LikeKindVideo, ID: draft.ID}, want: false},
		{name: "draft video for owner", viewer: owner.ID, target: models.LikeTarget{Kind: models.LikeKindVideo, ID: draft.ID}, want: true},
		{name: "comment on draft for stranger", viewer: viewer.ID, target: models.LikeTarget{Kind: models.LikeKindComment, ID: comment.ID}, want: false},
		{name: "comment on draft for owner", viewer: owner.ID, target: models.LikeTarget{Kind: models.LikeKindComment, ID: comment.ID}, want: true},
		{name: "missing video", viewer: owner.ID, target: models.LikeTarget{Kind: models.LikeKindVideo, ID: uuid.NewString()}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := likes.TargetVisible(ctx, tt.viewer, tt.target)
			if err != nil {
				t.Fatalf("target visible: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v got %v", tt.want, got)
			}
		})
	}
}

func TestPostgresSubscriptionRepository_RejectsSelfSubscription(t *testing.T) {
	ctx := context.Background()
	dbtest.Reset(t, testPool)

	users := NewPostgresUserRepository(testPool, testTimeout)
	fan := createTestUser(t, users, "frank")
	channel := createTestUser(t, users, "grace")

	subs := NewPostgresSubscriptionRepository(testPool, testTimeout)

	if err := subs.Relation(fan.ID, fan.ID).Create(ctx); !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected check constraint to reject self subscription, got %v", err)
	}

	state, err := toggle.Flip(ctx, subs.Relation(fan.ID, channel.ID))
	if err != nil || state != toggle.Present {
		t.Fatalf("expected subscription, got %s %v", state, err)
	}
	count, err := subs.CountSubscribers(ctx, channel.ID)
	if err != nil || count != 1 {
		t.Fatalf("expected 1 subscriber, got %d %v", count, err)
	}
}

func TestPostgresPlaylistRepository_MembershipIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dbtest.Reset(t, testPool)

	owner := createTestUser(t, NewPostgresUserRepository(testPool, testTimeout), "heidi")
	video := createTestVideo(t, NewPostgresVideoRepository(testPool, testTimeout), owner.ID, "Clip", 0, true)
	other := createTestVideo(t, NewPostgresVideoRepository(testPool, testTimeout), owner.ID, "Other", 0, true)

	playlists := NewPostgresPlaylistRepository(testPool, testTimeout)
	playlist := models.Playlist{ID: uuid.NewString(), OwnerID: owner.ID, Name: "Mix", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := playlists.Create(ctx, playlist); err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := playlists.AddVideo(ctx, playlist.ID, video.ID, time.Now().UTC()); err != nil {
			t.Fatalf("add video (attempt %d): %v", i+1, err)
		}
	}
	if err := playlists.RemoveVideo(ctx, playlist.ID, other.ID, time.Now().UTC()); err != nil {
		t.Fatalf("remove non-member: %v", err)
	}
	if err := playlists.AddVideo(ctx, playlist.ID, uuid.NewString(), time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing video, got %v", err)
	}

	var members int
	if err := testPool.QueryRow(ctx, `SELECT COUNT(*) FROM playlist_videos WHERE playlist_id = $1`, playlist.ID).Scan(&members); err != nil {
		t.Fatalf("count members: %v", err)
	}
	if members != 1 {
		t.Fatalf("expected exactly one member, got %d", members)
	}
}

func TestPostgresUserRepository_WatchHistoryNeverDuplicates(t *testing.T) {
	ctx := context.Background()
	dbtest.Reset(t, testPool)

	users := NewPostgresUserRepository(testPool, testTimeout)
	viewer := createTestUser(t, users, "ivan")
	video := createTestVideo(t, NewPostgresVideoRepository(testPool, testTimeout), viewer.ID, "Watched", 0, true)

	first := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	second := time.Now().UTC().Truncate(time.Millisecond)
	if err := users.AddToWatchHistory(ctx, viewer.ID, video.ID, first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := users.AddToWatchHistory(ctx, viewer.ID, video.ID, second); err != nil {
		t.Fatalf("append again: %v", err)
	}

	var (
		entries   int
		watchedAt time.Time
	)
	if err := testPool.QueryRow(ctx, `
        SELECT COUNT(*), MAX(watched_at) FROM watch_history WHERE user_id = $1
    `, viewer.ID).Scan(&entries, &watchedAt); err != nil {
		t.Fatalf("read history: %v", err)
	}
	if entries != 1 {
		t.Fatalf("expected one entry, got %d", entries)
	}
	if !timesClose(watchedAt, second, time.Millisecond) {
		t.Fatalf("expected watched_at refreshed to %v, got %v", second, watchedAt)
	}

	if err := users.AddToWatchHistory(ctx, viewer.ID, uuid.NewString(), second); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing video, got %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, username string) models.User {
	t.Helper()
	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		FullName:     username,
		PasswordHash: "password-hash",
		AvatarURL:    "https://cdn.example.com/" + username + ".png",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func createTestVideo(t *testing.T, repo *PostgresVideoRepository, ownerID, title string, views int64, published bool) models.Video {
	t.Helper()
	now := time.Now().UTC()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Title:        title,
		VideoURL:     "https://cdn.example.com/" + title + ".mp4",
		ThumbnailURL: "https://cdn.example.com/" + title + ".jpg",
		Duration:     42,
		Views:        views,
		IsPublished:  published,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(context.Background(), video); err != nil {
		t.Fatalf("create test video: %v", err)
	}
	return video
}

func timesClose(a, b time.Time, delta time.Duration) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= delta
}

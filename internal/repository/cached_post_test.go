package repository

import (
	"context"
	"testing"
	"time"

	"scribe/internal/cache"
	"scribe/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPosts struct {
	PostRepository
	feedCalls int
}

func (c *countingPosts) Feed(ctx context.Context, q models.FeedQuery) ([]models.AuthoredPost, error) {
	c.feedCalls++
	return c.PostRepository.Feed(ctx, q)
}

func TestCachedPostRepository_FeedInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	store := newSQLiteStore(t)
	ctx := context.Background()
	author := createUser(t, ctx, store, "alice")
	createPost(t, ctx, store, author, "first", time.Now().Add(-time.Hour))

	inner := &countingPosts{PostRepository: store.Posts}
	repo := NewCachedPostRepository(inner)
	q := models.FeedQuery{Page: 1, Sort: models.SortNewest}

	posts, err := repo.Feed(ctx, q)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	posts, err = repo.Feed(ctx, q)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, 1, inner.feedCalls)
	assert.Equal(t, "first", posts[0].Title)

	post := &models.Post{AuthorID: author.ID, Title: "second", Content: "c", DatePosted: time.Now()}
	require.NoError(t, repo.Create(ctx, post))

	posts, err = repo.Feed(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.feedCalls)
	assert.Equal(t, "second", posts[0].Title)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCachedPostRepository_WithoutRedis(t *testing.T) {
	cache.SetClient(nil)
	store := newSQLiteStore(t)
	ctx := context.Background()
	author := createUser(t, ctx, store, "alice")
	post := createPost(t, ctx, store, author, "first", time.Now())

	repo := NewCachedPostRepository(store.Posts)
	got, err := repo.GetWithAuthor(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.AuthorDetails.Username)

	_, err = repo.GetWithAuthor(ctx, "missing")
	assert.True(t, models.IsNotFound(err))
}

func TestCachedPostRepository_AuthorRenameRefreshesPost(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	store := newSQLiteStore(t)
	ctx := context.Background()
	author := createUser(t, ctx, store, "carol")
	post := createPost(t, ctx, store, author, "first", time.Now())
	repo := NewCachedPostRepository(store.Posts)

	got, err := repo.GetWithAuthor(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", got.AuthorDetails.Username)
	assert.True(t, mr.Exists(cache.PostKey(ctx, post.ID)))

	require.NoError(t, store.Users.UpdateProfile(ctx, author.ID, "renamed", author.Email))

	got, err = repo.GetWithAuthor(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", got.AuthorDetails.Username, "served from cache until invalidated")

	InvalidateAuthor(ctx)

	got, err = repo.GetWithAuthor(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.AuthorDetails.Username)
}

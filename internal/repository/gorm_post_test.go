package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"scribe/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedFeed(t *testing.T, ctx context.Context, store *Store, n int) (*models.User, []*models.Post) {
	t.Helper()
	author := createUser(t, ctx, store, "writer")
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	posts := make([]*models.Post, 0, n)
	for i := 1; i <= n; i++ {
		posts = append(posts, createPost(t, ctx, store, author, fmt.Sprintf("post %d", i), base.Add(time.Duration(i)*time.Hour)))
	}
	return author, posts
}

func titles(posts []models.AuthoredPost) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}

func TestPostRepository_FeedOldestSecondPage(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	author, _ := seedFeed(t, ctx, store, 10)

	q := models.FeedQuery{Page: 2, Sort: models.SortOldest}
	posts, err := store.Posts.Feed(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"post 5", "post 6", "post 7", "post 8"}, titles(posts))
	for _, p := range posts {
		assert.Equal(t, author.ID, p.AuthorID)
		assert.Equal(t, "writer", p.AuthorDetails.Username)
	}

	total, err := store.Posts.Count(ctx)
	require.NoError(t, err)
	page := models.NewFeedPage(q, posts, total)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasPrev)
	assert.True(t, page.HasNext)
}

func TestPostRepository_FeedNewestAndBounds(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	seedFeed(t, ctx, store, 10)

	posts, err := store.Posts.Feed(ctx, models.FeedQuery{Page: 1, Sort: models.SortNewest})
	require.NoError(t, err)
	assert.Equal(t, []string{"post 10", "post 9", "post 8", "post 7"}, titles(posts))

	posts, err = store.Posts.Feed(ctx, models.FeedQuery{Page: 3, Sort: models.SortNewest})
	require.NoError(t, err)
	assert.Equal(t, []string{"post 2", "post 1"}, titles(posts))

	posts, err = store.Posts.Feed(ctx, models.FeedQuery{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, posts)

	posts, err = store.Posts.Feed(ctx, models.FeedQuery{Page: models.ParsePage("9223372036854775807")})
	require.NoError(t, err)
	assert.Empty(t, posts)

	posts, err = store.Posts.Feed(ctx, models.FeedQuery{Page: 0, Sort: "sideways"})
	require.NoError(t, err)
	assert.Equal(t, "post 10", posts[0].Title)
}

func TestPostRepository_FeedTieBreak(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	author := createUser(t, ctx, store, "writer")
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		createPost(t, ctx, store, author, fmt.Sprintf("same %d", i), at)
	}

	first, err := store.Posts.Feed(ctx, models.FeedQuery{Page: 1, Sort: models.SortOldest})
	require.NoError(t, err)
	second, err := store.Posts.Feed(ctx, models.FeedQuery{Page: 2, Sort: models.SortOldest})
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, p := range append(first, second...) {
		assert.False(t, seen[p.ID], "post %s repeated across pages", p.ID)
		seen[p.ID] = true
	}
	assert.Len(t, seen, 6)
}

func TestPostRepository_GetUpdateDelete(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	author := createUser(t, ctx, store, "alice")
	post := createPost(t, ctx, store, author, "hello", time.Now())

	got, err := store.Posts.GetWithAuthor(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)
	assert.Equal(t, "alice", got.AuthorDetails.Username)
	assert.Equal(t, "alice@example.com", got.AuthorDetails.Email)

	require.NoError(t, store.Posts.Update(ctx, post.ID, "hello again", "new body"))
	plain, err := store.Posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello again", plain.Title)
	assert.Equal(t, "new body", plain.Content)
	assert.Equal(t, author.ID, plain.AuthorID)

	require.NoError(t, store.Posts.Delete(ctx, post.ID))
	_, err = store.Posts.GetByID(ctx, post.ID)
	assert.True(t, models.IsNotFound(err))
	_, err = store.Posts.GetWithAuthor(ctx, post.ID)
	assert.True(t, models.IsNotFound(err))

	assert.True(t, models.IsNotFound(store.Posts.Delete(ctx, post.ID)))
	assert.True(t, models.IsNotFound(store.Posts.Update(ctx, post.ID, "t", "c")))
}

func TestPostRepository_Listings(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	alice := createUser(t, ctx, store, "alice")
	bob := createUser(t, ctx, store, "bob")
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	createPost(t, ctx, store, alice, "a1", base)
	createPost(t, ctx, store, bob, "b1", base.Add(time.Minute))
	createPost(t, ctx, store, alice, "a2", base.Add(2*time.Minute))

	all, err := store.Posts.ListWithAuthors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "b1", "a1"}, titles(all))

	mine, err := store.Posts.ListByAuthor(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "a1"}, titles(mine))

	none, err := store.Posts.ListByAuthor(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_PingClose(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	assert.NoError(t, store.Ping(ctx))
	assert.NoError(t, store.Close(ctx))
	assert.Error(t, store.Ping(ctx))
}

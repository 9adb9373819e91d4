package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"scribe/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		_ = Close()
		mr.Close()
	})
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *models.Post) func() error {
		return func() error {
			calls++
			*dest = models.Post{ID: "p1", Title: "Hello"}
			return nil
		}
	}

	var first models.Post
	require.NoError(t, Aside(ctx, PostKey(ctx, "p1"), &first, PostTTL, fetch(&first)))
	assert.Equal(t, "Hello", first.Title)

	var second models.Post
	require.NoError(t, Aside(ctx, PostKey(ctx, "p1"), &second, PostTTL, fetch(&second)))
	assert.Equal(t, "Hello", second.Title)
	assert.Equal(t, 1, calls)
}

func TestAside_FetchErrorNotCached(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	var dest models.Post
	err := Aside(ctx, PostKey(ctx, "missing"), &dest, PostTTL, func() error {
		return errors.New("boom")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists(PostKey(ctx, "missing")))
}

func TestAside_WithoutClient(t *testing.T) {
	SetClient(nil)
	var dest models.Post
	called := false
	err := Aside(context.Background(), PostKey(context.Background(), "x"), &dest, time.Minute, func() error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestInvalidateFeed_ChangesKeys(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()
	q := models.FeedQuery{Page: 2, Sort: models.SortOldest}

	before := FeedKey(ctx, q)
	assert.Equal(t, "feed:v0:oldest:2", before)

	InvalidateFeed(ctx)
	after := FeedKey(ctx, q)
	assert.Equal(t, "feed:v1:oldest:2", after)
	assert.NotEqual(t, APIPostsKey(context.Background()), "api:posts:v0")
}

func TestInvalidatePost(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, PostKey(ctx, "p1"), models.Post{ID: "p1"}, PostTTL))
	assert.True(t, mr.Exists(PostKey(ctx, "p1")))

	InvalidatePost(ctx, "p1")
	assert.False(t, mr.Exists(PostKey(ctx, "p1")))
}

func TestPostKey_FollowsFeedVersion(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	assert.Equal(t, "post:v0:p1", PostKey(ctx, "p1"))
	InvalidateFeed(ctx)
	assert.Equal(t, "post:v1:p1", PostKey(ctx, "p1"))
}

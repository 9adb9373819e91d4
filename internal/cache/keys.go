package cache

import (
	"context"
	"fmt"
	"time"

	"scribe/internal/models"
)

const (
	PostKeyPrefix  = "post:v%d:%s"
	FeedKeyPrefix  = "feed:v%d:%s:%d"
	FeedVersionKey = "feed:version"
	APIPostsPrefix = "api:posts:v%d"
	FeedCountKey   = "feed:v%d:count"
)

const (
	PostTTL = 30 * time.Minute
	FeedTTL = 2 * time.Minute
)

// PostKey shares the feed version, since a cached post embeds its author.
func PostKey(ctx context.Context, postID string) string {
	return fmt.Sprintf(PostKeyPrefix, feedVersion(ctx), postID)
}

// FeedKey namespaces a feed page under the current feed version so a single
// INCR invalidates every cached page.
func FeedKey(ctx context.Context, q models.FeedQuery) string {
	return fmt.Sprintf(FeedKeyPrefix, feedVersion(ctx), q.Sort, q.Page)
}

// FeedTotalKey caches the post count used for total_pages.
func FeedTotalKey(ctx context.Context) string {
	return fmt.Sprintf(FeedCountKey, feedVersion(ctx))
}

// APIPostsKey is the cache key of the unpaginated /api/posts listing.
func APIPostsKey(ctx context.Context) string {
	return fmt.Sprintf(APIPostsPrefix, feedVersion(ctx))
}

func feedVersion(ctx context.Context) int64 {
	if client == nil {
		return 0
	}
	v, err := client.Get(ctx, FeedVersionKey).Int64()
	if err != nil {
		return 0
	}
	return v
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidatePost(ctx context.Context, postID string) {
	Invalidate(ctx, PostKey(ctx, postID))
}

// InvalidateFeed bumps the feed version; old pages expire on their own TTL.
func InvalidateFeed(ctx context.Context) {
	if client != nil {
		client.Incr(ctx, FeedVersionKey)
	}
}

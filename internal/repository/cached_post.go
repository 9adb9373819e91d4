package repository

import (
	"context"

	"scribe/internal/cache"
	"scribe/internal/models"
)

type cachedPostRepository struct {
	PostRepository
}

// NewCachedPostRepository wraps a PostRepository with Redis cache-aside
// reads. Every mutation bumps the feed version and drops the post key.
func NewCachedPostRepository(inner PostRepository) PostRepository {
	return &cachedPostRepository{PostRepository: inner}
}

func (r *cachedPostRepository) GetWithAuthor(ctx context.Context, id string) (*models.AuthoredPost, error) {
	var post models.AuthoredPost
	err := cache.Aside(ctx, cache.PostKey(ctx, id), &post, cache.PostTTL, func() error {
		p, err := r.PostRepository.GetWithAuthor(ctx, id)
		if err != nil {
			return err
		}
		post = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *cachedPostRepository) Feed(ctx context.Context, q models.FeedQuery) ([]models.AuthoredPost, error) {
	q = q.Normalize()
	var posts []models.AuthoredPost
	err := cache.Aside(ctx, cache.FeedKey(ctx, q), &posts, cache.FeedTTL, func() error {
		var err error
		posts, err = r.PostRepository.Feed(ctx, q)
		return err
	})
	return posts, err
}

func (r *cachedPostRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := cache.Aside(ctx, cache.FeedTotalKey(ctx), &n, cache.FeedTTL, func() error {
		var err error
		n, err = r.PostRepository.Count(ctx)
		return err
	})
	return n, err
}

func (r *cachedPostRepository) ListWithAuthors(ctx context.Context) ([]models.AuthoredPost, error) {
	var posts []models.AuthoredPost
	err := cache.Aside(ctx, cache.APIPostsKey(ctx), &posts, cache.FeedTTL, func() error {
		var err error
		posts, err = r.PostRepository.ListWithAuthors(ctx)
		return err
	})
	return posts, err
}

func (r *cachedPostRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.PostRepository.Create(ctx, post); err != nil {
		return err
	}
	cache.InvalidateFeed(ctx)
	return nil
}

func (r *cachedPostRepository) Update(ctx context.Context, id, title, content string) error {
	if err := r.PostRepository.Update(ctx, id, title, content); err != nil {
		return err
	}
	cache.InvalidatePost(ctx, id)
	cache.InvalidateFeed(ctx)
	return nil
}

func (r *cachedPostRepository) Delete(ctx context.Context, id string) error {
	if err := r.PostRepository.Delete(ctx, id); err != nil {
		return err
	}
	cache.InvalidatePost(ctx, id)
	cache.InvalidateFeed(ctx)
	return nil
}

// InvalidateAuthor drops cached joins after an author's username or email
// changes. Single posts share the feed version, so they are dropped too.
func InvalidateAuthor(ctx context.Context) {
	cache.InvalidateFeed(ctx)
}

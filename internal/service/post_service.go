package service

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"scribe/internal/models"
	"scribe/internal/notifications"
	"scribe/internal/observability"
	"scribe/internal/repository"
	"scribe/internal/validation"
)

// Messages flashed to the user for ownership failures.
const (
	MsgNotAuthorizedUpdate = "You are not authorized to update this post!"
	MsgNotAuthorizedDelete = "You are not authorized to delete this post!"
	MsgLoginRequired       = "Please log in to access this page."
)

type PostService struct {
	posts  repository.PostRepository
	users  repository.UserRepository
	events notifications.Publisher
	now    func() time.Time
}

type CreatePostInput struct {
	AuthorID string
	Title    string
	Content  string
}

type UpdatePostInput struct {
	UserID  string
	PostID  string
	Title   string
	Content string
}

type DeletePostInput struct {
	UserID string
	PostID string
}

// NewPostService wires the post use cases. events may be nil.
func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	events notifications.Publisher,
) *PostService {
	return &PostService{
		posts:  posts,
		users:  users,
		events: events,
		now:    time.Now,
	}
}

// Feed returns one page of posts joined with their authors.
func (s *PostService) Feed(ctx context.Context, q models.FeedQuery) (*models.FeedPage, error) {
	ctx, span := observability.TraceServiceCall(ctx, "PostService", "Feed")
	q = q.Normalize()

	posts, err := s.posts.Feed(ctx, q)
	if err != nil {
		observability.EndSpan(span, err)
		return nil, err
	}
	total, err := s.posts.Count(ctx)
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return models.NewFeedPage(q, posts, total), nil
}

// CreatePost inserts a post and appends it to the author's post list. When
// the append fails the post is removed again.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.AuthorID == "" {
		return nil, models.NewUnauthorizedError(MsgLoginRequired)
	}
	title, content, err := checkPost(in.Title, in.Content)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		AuthorID:   in.AuthorID,
		Title:      title,
		Content:    content,
		DatePosted: s.now().UTC(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	if err := s.users.AppendPost(ctx, in.AuthorID, post.ID); err != nil {
		if delErr := s.posts.Delete(ctx, post.ID); delErr != nil {
			observability.GlobalLogger.ErrorContext(ctx, "failed to roll back orphaned post",
				slog.String("post_id", post.ID),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, err
	}

	s.publish(ctx, notifications.EventPostCreated, post)
	return post, nil
}

// GetPost returns a post joined with its author.
func (s *PostService) GetPost(ctx context.Context, id string) (*models.AuthoredPost, error) {
	return s.posts.GetWithAuthor(ctx, id)
}

// GetPostForEdit returns a post only when userID is its author.
func (s *PostService) GetPostForEdit(ctx context.Context, id, userID string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, models.NewUnauthorizedError(MsgNotAuthorizedUpdate)
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.GetPostForEdit(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}
	title, content, err := checkPost(in.Title, in.Content)
	if err != nil {
		return nil, err
	}

	if err := s.posts.Update(ctx, post.ID, title, content); err != nil {
		return nil, err
	}
	post.Title = title
	post.Content = content

	s.publish(ctx, notifications.EventPostUpdated, post)
	return post, nil
}

// DeletePost removes the post document, then its id from the author's list.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return err
	}
	if post.AuthorID != in.UserID {
		return models.NewUnauthorizedError(MsgNotAuthorizedDelete)
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return err
	}
	if err := s.users.RemovePost(ctx, post.AuthorID, post.ID); err != nil {
		return err
	}

	s.publish(ctx, notifications.EventPostDeleted, post)
	return nil
}

// ListAPIPosts returns every post in its public JSON shape, newest first.
func (s *PostService) ListAPIPosts(ctx context.Context) ([]models.APIPost, error) {
	posts, err := s.posts.ListWithAuthors(ctx)
	if err != nil {
		return nil, err
	}
	return toAPIPosts(posts), nil
}

// GetUserPosts returns the posts of one user in their public JSON shape.
func (s *PostService) GetUserPosts(ctx context.Context, userID string) ([]models.APIPost, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	posts, err := s.posts.ListByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toAPIPosts(posts), nil
}

func (s *PostService) publish(ctx context.Context, eventType string, post *models.Post) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, notifications.NewFeedEvent(eventType, post.ID, post.Title, post.AuthorID))
}

func toAPIPosts(posts []models.AuthoredPost) []models.APIPost {
	out := make([]models.APIPost, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.API())
	}
	return out
}

func checkPost(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "", models.NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(title) > validation.TitleMax {
		return "", "", models.NewValidationError("Title too long (max 100 characters)")
	}
	if strings.TrimSpace(content) == "" {
		return "", "", models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > validation.ContentMax {
		return "", "", models.NewValidationError("Content too long (max 50000 characters)")
	}
	return title, content, nil
}

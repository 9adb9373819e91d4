// Package repository provides data access layer implementations for the application.
// Each contract has a MongoDB implementation and a GORM implementation.
package repository

import (
	"context"

	"scribe/internal/models"
)

// UserRepository defines persistence operations for users.
// GetByEmail and GetByUsername return (nil, nil) when no user matches.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id, username, email string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	AppendPost(ctx context.Context, userID, postID string) error
	RemovePost(ctx context.Context, userID, postID string) error
	List(ctx context.Context) ([]models.User, error)
}

// PostRepository defines persistence operations for posts. Reads that join
// the author drop posts whose author no longer resolves.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetWithAuthor(ctx context.Context, id string) (*models.AuthoredPost, error)
	Update(ctx context.Context, id, title, content string) error
	Delete(ctx context.Context, id string) error
	Feed(ctx context.Context, q models.FeedQuery) ([]models.AuthoredPost, error)
	Count(ctx context.Context) (int64, error)
	ListWithAuthors(ctx context.Context) ([]models.AuthoredPost, error)
	ListByAuthor(ctx context.Context, authorID string) ([]models.AuthoredPost, error)
}

// Store bundles the repositories of one backing store.
type Store struct {
	Driver string
	Users  UserRepository
	Posts  PostRepository
	ping   func(ctx context.Context) error
	close  func(ctx context.Context) error
}

// Ping checks the backing store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the backing store connection.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

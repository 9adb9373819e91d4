package seed

import (
	"context"
	"fmt"
	"log"

	"scribe/internal/models"
	"scribe/internal/repository"
)

// Options configuration for the seeder
type Options struct {
	NumUsers int
	NumPosts int
	// MaxDays bounds how far back join and posting dates are spread.
	MaxDays int
	// DryRun builds entities without writing them.
	DryRun bool
	// RandSeed makes generated data reproducible when non-zero.
	RandSeed int64
}

// Result counts what a seeding run created.
type Result struct {
	Users int
	Posts int
}

// Seeder populates a store with demo users and posts.
type Seeder struct {
	store   *repository.Store
	factory *Factory
	opts    Options
}

// NewSeeder creates a Seeder writing to store.
func NewSeeder(store *repository.Store, opts Options) *Seeder {
	return &Seeder{store: store, factory: NewFactory(store, opts), opts: opts}
}

// Factory exposes the underlying factory for presets and tests.
func (s *Seeder) Factory() *Factory {
	return s.factory
}

// IsEmpty reports whether the store holds no users and no posts.
func (s *Seeder) IsEmpty(ctx context.Context) (bool, error) {
	posts, err := s.store.Posts.Count(ctx)
	if err != nil {
		return false, err
	}
	if posts > 0 {
		return false, nil
	}
	users, err := s.store.Users.List(ctx)
	if err != nil {
		return false, err
	}
	return len(users) == 0, nil
}

// Run creates NumUsers users and spreads NumPosts posts among them.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	log.Printf("🌱 Starting seeding with %d users and %d posts...", s.opts.NumUsers, s.opts.NumPosts)

	if s.opts.NumPosts > 0 && s.opts.NumUsers <= 0 {
		return nil, fmt.Errorf("cannot create %d posts without users", s.opts.NumPosts)
	}

	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		user, err := s.factory.CreateUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create users: %w", err)
		}
		users = append(users, user)
	}
	log.Printf("✓ %d users created", len(users))

	for i := 0; i < s.opts.NumPosts; i++ {
		author := users[s.factory.rng.Intn(len(users))]
		if _, err := s.factory.CreatePost(ctx, author); err != nil {
			return nil, fmt.Errorf("failed to create posts: %w", err)
		}
	}
	log.Printf("✓ %d posts created", s.opts.NumPosts)

	return &Result{Users: len(users), Posts: s.opts.NumPosts}, nil
}

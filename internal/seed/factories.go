// Package seed provides helpers to create demo data for the blog. These
// helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"scribe/internal/auth"
	"scribe/internal/models"
	"scribe/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultPassword is the password of every generated account.
const DefaultPassword = "password123"

// Factory builds users and posts and persists them through the store.
type Factory struct {
	store *repository.Store
	opts  Options
	faker *gofakeit.Faker
	rng   *rand.Rand
	// password hash shared by generated users, computed once
	passwordHash string
	// synthetic ID counter when running in DryRun mode
	nextID int
}

// NewFactory creates a Factory bound to store. store may be nil in DryRun mode.
func NewFactory(store *repository.Store, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		store:  store,
		opts:   opts,
		faker:  gofakeit.New(seed),
		rng:    rand.New(rand.NewSource(seed)), // #nosec G404: acceptable for seeding
		nextID: 1000,
	}
}

func (f *Factory) hash() (string, error) {
	if f.passwordHash != "" {
		return f.passwordHash, nil
	}
	h, err := auth.HashPassword(DefaultPassword)
	if err != nil {
		return "", fmt.Errorf("hash seed password: %w", err)
	}
	f.passwordHash = h
	return h, nil
}

// BuildUser constructs a user without persisting it. Usernames stay within
// the 20 character form limit.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	name := strings.ToLower(f.faker.FirstName())
	if len(name) > 14 {
		name = name[:14]
	}
	name = fmt.Sprintf("%s%d", name, f.faker.Number(100, 99999))

	user := &models.User{
		Username:   name,
		Email:      name + "@" + f.faker.DomainName(),
		DateJoined: f.pastTime(),
		Image:      models.DefaultImage,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser builds and persists a user with DefaultPassword.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)

	if user.Password == "" {
		h, err := f.hash()
		if err != nil {
			return nil, err
		}
		user.Password = h
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = fmt.Sprintf("dry-%d", f.nextID)
		log.Printf("[dry-run] CreateUser: %s <%s>", user.Username, user.Email)
		return user, nil
	}

	if err := f.store.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post for user without persisting it. The posting
// date is spread over the last MaxDays days.
func (f *Factory) BuildPost(user *models.User, overrides ...func(*models.Post)) *models.Post {
	title := strings.TrimSuffix(f.faker.Sentence(f.rng.Intn(5)+3), ".")
	if len(title) > 100 {
		title = title[:100]
	}
	post := &models.Post{
		AuthorID:   user.ID,
		Title:      title,
		Content:    f.faker.Paragraph(f.rng.Intn(3)+1, 4, 12, "\n\n"),
		DatePosted: f.pastTime(),
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost persists a post and links it to its author, in the same order
// as the post service.
func (f *Factory) CreatePost(ctx context.Context, user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(user, overrides...)

	if f.opts.DryRun {
		f.nextID++
		post.ID = fmt.Sprintf("dry-%d", f.nextID)
		user.Posts = append(user.Posts, post.ID)
		log.Printf("[dry-run] CreatePost: user=%s title=%q", user.Username, post.Title)
		return post, nil
	}

	if err := f.store.Posts.Create(ctx, post); err != nil {
		return nil, err
	}
	if err := f.store.Users.AppendPost(ctx, user.ID, post.ID); err != nil {
		return nil, err
	}
	user.Posts = append(user.Posts, post.ID)
	return post, nil
}

func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().UTC().Add(-back).Truncate(time.Second)
}

package service

import (
	"context"
	"errors"
	"testing"

	"scribe/internal/mail"
	"scribe/internal/models"
	"scribe/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn          func(context.Context, *models.Post) error
	getByIDFn         func(context.Context, string) (*models.Post, error)
	getWithAuthorFn   func(context.Context, string) (*models.AuthoredPost, error)
	updateFn          func(context.Context, string, string, string) error
	deleteFn          func(context.Context, string) error
	feedFn            func(context.Context, models.FeedQuery) ([]models.AuthoredPost, error)
	countFn           func(context.Context) (int64, error)
	listWithAuthorsFn func(context.Context) ([]models.AuthoredPost, error)
	listByAuthorFn    func(context.Context, string) ([]models.AuthoredPost, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetWithAuthor(ctx context.Context, id string) (*models.AuthoredPost, error) {
	return s.getWithAuthorFn(ctx, id)
}
func (s *postRepoStub) Update(ctx context.Context, id, title, content string) error {
	return s.updateFn(ctx, id, title, content)
}
func (s *postRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) Feed(ctx context.Context, q models.FeedQuery) ([]models.AuthoredPost, error) {
	return s.feedFn(ctx, q)
}
func (s *postRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}
func (s *postRepoStub) ListWithAuthors(ctx context.Context) ([]models.AuthoredPost, error) {
	return s.listWithAuthorsFn(ctx)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID string) ([]models.AuthoredPost, error) {
	return s.listByAuthorFn(ctx, authorID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error {
			p.ID = "p1"
			return nil
		},
		getByIDFn: func(_ context.Context, id string) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		},
		getWithAuthorFn: func(_ context.Context, id string) (*models.AuthoredPost, error) {
			return nil, models.NewNotFoundError("Post", id)
		},
		updateFn:          func(_ context.Context, _, _, _ string) error { return nil },
		deleteFn:          func(_ context.Context, _ string) error { return nil },
		feedFn:            func(_ context.Context, _ models.FeedQuery) ([]models.AuthoredPost, error) { return nil, nil },
		countFn:           func(_ context.Context) (int64, error) { return 0, nil },
		listWithAuthorsFn: func(_ context.Context) ([]models.AuthoredPost, error) { return nil, nil },
		listByAuthorFn:    func(_ context.Context, _ string) ([]models.AuthoredPost, error) { return nil, nil },
	}
}

// mockUserRepo is a testify mock for repository.UserRepository.
type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}
func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}
func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}
func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}
func (m *mockUserRepo) UpdateProfile(ctx context.Context, id, username, email string) error {
	return m.Called(ctx, id, username, email).Error(0)
}
func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}
func (m *mockUserRepo) AppendPost(ctx context.Context, userID, postID string) error {
	return m.Called(ctx, userID, postID).Error(0)
}
func (m *mockUserRepo) RemovePost(ctx context.Context, userID, postID string) error {
	return m.Called(ctx, userID, postID).Error(0)
}
func (m *mockUserRepo) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

// recordingPublisher captures published feed events.
type recordingPublisher struct {
	events []notifications.FeedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event notifications.FeedEvent) {
	p.events = append(p.events, event)
}

// recordingMailer captures sent mail.
type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

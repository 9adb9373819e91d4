package repository

import (
	"context"
	"errors"
	"time"

	"scribe/internal/database"
	"scribe/internal/models"
	"scribe/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type postRepository struct {
	db     *gorm.DB
	driver string
	logger *observability.RepoLogger
}

// NewPostRepository returns a GORM-backed PostRepository.
func NewPostRepository(db *gorm.DB, driver string) PostRepository {
	return &postRepository{
		db:     db,
		driver: driver,
		logger: observability.NewRepoLogger(driver, "posts"),
	}
}

// authoredRow is the scan target of the posts/users join.
type authoredRow struct {
	ID             string
	AuthorID       string
	Title          string
	Content        string
	DatePosted     time.Time
	AuthorUsername string
	AuthorEmail    string
}

func (row authoredRow) toModel() models.AuthoredPost {
	return models.AuthoredPost{
		ID:         row.ID,
		AuthorID:   row.AuthorID,
		Title:      row.Title,
		Content:    row.Content,
		DatePosted: row.DatePosted,
		AuthorDetails: models.AuthorDetails{
			Username: row.AuthorUsername,
			Email:    row.AuthorEmail,
		},
	}
}

// joined selects posts inner-joined with their author.
func (r *postRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("posts").
		Select("posts.id, posts.author_id, posts.title, posts.content, posts.date_posted, " +
			"users.username AS author_username, users.email AS author_email").
		Joins("JOIN users ON users.id = posts.author_id")
}

func orderClause(order models.SortOrder) string {
	if order == models.SortOldest {
		return "posts.date_posted ASC, posts.id ASC"
	}
	return "posts.date_posted DESC, posts.id DESC"
}

func (r *postRepository) scanJoined(ctx context.Context, method string, q *gorm.DB) ([]models.AuthoredPost, error) {
	defer observability.TrackQuery(r.driver, method, "posts")()

	var rows []authoredRow
	if err := q.Scan(&rows).Error; err != nil {
		r.logger.LogError(ctx, err, method)
		return nil, models.NewInternalError(err)
	}
	posts := make([]models.AuthoredPost, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.toModel())
	}
	return posts, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery(r.driver, "Create", "posts")()

	rec := database.PostRecord{
		ID:         uuid.NewString(),
		AuthorID:   post.AuthorID,
		Title:      post.Title,
		Content:    post.Content,
		DatePosted: post.DatePosted.UTC(),
	}
	if err := r.db.WithContext(ctx).Omit("Author").Create(&rec).Error; err != nil {
		r.logger.LogError(ctx, err, "Create")
		return models.NewInternalError(err)
	}

	post.ID = rec.ID
	post.DatePosted = rec.DatePosted
	r.logger.LogCreate(ctx, map[string]interface{}{"post_id": post.ID, "author": post.AuthorID})
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	defer observability.TrackQuery(r.driver, "GetByID", "posts")()

	var rec database.PostRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &models.Post{
		ID:         rec.ID,
		AuthorID:   rec.AuthorID,
		Title:      rec.Title,
		Content:    rec.Content,
		DatePosted: rec.DatePosted,
	}, nil
}

func (r *postRepository) GetWithAuthor(ctx context.Context, id string) (*models.AuthoredPost, error) {
	posts, err := r.scanJoined(ctx, "GetWithAuthor", r.joined(ctx).Where("posts.id = ?", id).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, models.NewNotFoundError("Post", id)
	}
	return &posts[0], nil
}

func (r *postRepository) Update(ctx context.Context, id, title, content string) error {
	defer observability.TrackQuery(r.driver, "Update", "posts")()

	res := r.db.WithContext(ctx).
		Model(&database.PostRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"title": title, "content": content})
	if res.Error != nil {
		r.logger.LogError(ctx, res.Error, "Update")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.logger.LogUpdate(ctx, map[string]interface{}{"post_id": id})
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	defer observability.TrackQuery(r.driver, "Delete", "posts")()

	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&database.PostRecord{})
	if res.Error != nil {
		r.logger.LogError(ctx, res.Error, "Delete")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.logger.LogDelete(ctx, map[string]interface{}{"post_id": id})
	return nil
}

func (r *postRepository) Feed(ctx context.Context, q models.FeedQuery) ([]models.AuthoredPost, error) {
	q = q.Normalize()
	return r.scanJoined(ctx, "Feed", r.joined(ctx).
		Order(orderClause(q.Sort)).
		Limit(models.FeedPageSize).
		Offset(q.Skip()))
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	defer observability.TrackQuery(r.driver, "Count", "posts")()

	var n int64
	if err := r.db.WithContext(ctx).Model(&database.PostRecord{}).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *postRepository) ListWithAuthors(ctx context.Context) ([]models.AuthoredPost, error) {
	return r.scanJoined(ctx, "ListWithAuthors", r.joined(ctx).Order(orderClause(models.SortNewest)))
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID string) ([]models.AuthoredPost, error) {
	return r.scanJoined(ctx, "ListByAuthor", r.joined(ctx).
		Where("posts.author_id = ?", authorID).
		Order(orderClause(models.SortNewest)))
}

// NewGormStore bundles the GORM repositories around an open connection.
func NewGormStore(db *gorm.DB, driver string) *Store {
	return &Store{
		Driver: driver,
		Users:  NewUserRepository(db, driver),
		Posts:  NewPostRepository(db, driver),
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		close: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"scribe/internal/config"
	"scribe/internal/database"
	"scribe/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupSQLite opens a private in-memory database with the schema applied.
func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := database.Open(sqlite.Open(dsn))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func newSQLiteStore(t *testing.T) *Store {
	return NewGormStore(setupSQLite(t), config.StoreSQLite)
}

func createUser(t *testing.T, ctx context.Context, store *Store, name string) *models.User {
	t.Helper()
	user := &models.User{
		Username:   name,
		Email:      name + "@example.com",
		Password:   "hash",
		DateJoined: time.Now().UTC(),
	}
	require.NoError(t, store.Users.Create(ctx, user))
	return user
}

// createPost inserts a post and links it to its author the way the post
// service does.
func createPost(t *testing.T, ctx context.Context, store *Store, author *models.User, title string, at time.Time) *models.Post {
	t.Helper()
	post := &models.Post{AuthorID: author.ID, Title: title, Content: "content of " + title, DatePosted: at}
	require.NoError(t, store.Posts.Create(ctx, post))
	require.NoError(t, store.Users.AppendPost(ctx, author.ID, post.ID))
	return post
}

package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"scribe/internal/config"
	"scribe/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndLookup(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	user := createUser(t, ctx, store, "alice")
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, models.DefaultImage, user.Image)
	assert.Empty(t, user.Posts)

	byID, err := store.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
	assert.Equal(t, "hash", byID.Password)

	byEmail, err := store.Users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byName, err := store.Users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)
}

func TestUserRepository_MissingUser(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	user, err := store.Users.GetByEmail(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, user)

	user, err = store.Users.GetByID(ctx, "missing")
	assert.Nil(t, user)
	assert.True(t, models.IsNotFound(err))

	err = store.Users.UpdatePassword(ctx, "missing", "x")
	assert.True(t, models.IsNotFound(err))
}

func TestUserRepository_DuplicateUser(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	createUser(t, ctx, store, "alice")
	err := store.Users.Create(ctx, &models.User{Username: "alice", Email: "other@example.com", Password: "x"})
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeValidation))

	bob := createUser(t, ctx, store, "bob")
	err = store.Users.UpdateProfile(ctx, bob.ID, "bob", "alice@example.com")
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestUserRepository_UpdateProfileAndPassword(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	user := createUser(t, ctx, store, "alice")
	require.NoError(t, store.Users.UpdateProfile(ctx, user.ID, "alicia", "alicia@example.com"))
	require.NoError(t, store.Users.UpdatePassword(ctx, user.ID, "newhash"))

	got, err := store.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", got.Username)
	assert.Equal(t, "alicia@example.com", got.Email)
	assert.Equal(t, "newhash", got.Password)
}

func TestUserRepository_PostList(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	user := createUser(t, ctx, store, "alice")
	require.NoError(t, store.Users.AppendPost(ctx, user.ID, "p1"))
	require.NoError(t, store.Users.AppendPost(ctx, user.ID, "p2"))
	require.NoError(t, store.Users.AppendPost(ctx, user.ID, "p3"))
	require.NoError(t, store.Users.RemovePost(ctx, user.ID, "p2"))

	got, err := store.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p3"}, got.Posts)
	assert.True(t, got.OwnsPost("p3"))
	assert.False(t, got.OwnsPost("p2"))

	err = store.Users.AppendPost(ctx, "missing", "p4")
	assert.True(t, models.IsNotFound(err))

	users, err := store.Users.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, []string{"p1", "p3"}, users[0].Posts)
}

func TestUserRepository_GetByID_DatabaseError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db, config.StorePostgres)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1`)).
		WithArgs("u1", 1).
		WillReturnError(errors.New("connection timeout"))

	user, err := repo.GetByID(ctx, "u1")
	assert.Nil(t, user)
	assert.True(t, models.HasCode(err, models.CodeInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db, config.StorePostgres)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1`)).
		WithArgs("u1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}))

	user, err := repo.GetByID(ctx, "u1")
	assert.Nil(t, user)
	assert.True(t, models.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_UniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db, config.StorePostgres)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(ctx, &models.User{Username: "alice", Email: "alice@example.com", Password: "x"})
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeValidation))
	assert.Equal(t, "User already exists", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"errors"

	"scribe/internal/database"
	"scribe/internal/models"
	"scribe/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct {
	db     *gorm.DB
	driver string
	logger *observability.RepoLogger
}

// NewUserRepository returns a GORM-backed UserRepository. driver labels
// metrics and logs ("postgres" or "sqlite").
func NewUserRepository(db *gorm.DB, driver string) UserRepository {
	return &userRepository{
		db:     db,
		driver: driver,
		logger: observability.NewRepoLogger(driver, "users"),
	}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := r.first(ctx, "GetByID", "id = ?", id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", id)
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "GetByEmail", "email = ?", email)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "GetByUsername", "username = ?", username)
}

func (r *userRepository) first(ctx context.Context, method, query string, arg string) (*models.User, error) {
	defer observability.TrackQuery(r.driver, method, "users")()

	var rec database.UserRecord
	if err := r.db.WithContext(ctx).Where(query, arg).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.LogError(ctx, err, method)
		return nil, models.NewInternalError(err)
	}

	postIDs, err := r.postIDs(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return userFromRecord(&rec, postIDs), nil
}

func (r *userRepository) postIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).
		Model(&database.UserPostRecord{}).
		Where("user_id = ?", userID).
		Order("seq ASC").
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery(r.driver, "Create", "users")()

	if user.Image == "" {
		user.Image = models.DefaultImage
	}
	rec := database.UserRecord{
		ID:         uuid.NewString(),
		Username:   user.Username,
		Email:      user.Email,
		Password:   user.Password,
		DateJoined: user.DateJoined.UTC(),
		Image:      user.Image,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueConstraintError(err) {
			return duplicateUserError()
		}
		r.logger.LogError(ctx, err, "Create")
		return models.NewInternalError(err)
	}

	user.ID = rec.ID
	user.DateJoined = rec.DateJoined
	user.Posts = []string{}
	r.logger.LogCreate(ctx, map[string]interface{}{"user_id": user.ID})
	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id, username, email string) error {
	return r.update(ctx, "UpdateProfile", id, map[string]interface{}{
		"username": username,
		"email":    email,
	})
}

func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(ctx, "UpdatePassword", id, map[string]interface{}{
		"password": passwordHash,
	})
}

func (r *userRepository) update(ctx context.Context, method, id string, fields map[string]interface{}) error {
	defer observability.TrackQuery(r.driver, method, "users")()

	res := r.db.WithContext(ctx).Model(&database.UserRecord{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return duplicateUserError()
		}
		r.logger.LogError(ctx, res.Error, method)
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	r.logger.LogUpdate(ctx, map[string]interface{}{"user_id": id, "method": method})
	return nil
}

func (r *userRepository) AppendPost(ctx context.Context, userID, postID string) error {
	defer observability.TrackQuery(r.driver, "AppendPost", "user_posts")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&database.UserRecord{}).Where("id = ?", userID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return models.NewNotFoundError("User", userID)
		}

		var next int64
		if err := tx.Model(&database.UserPostRecord{}).
			Where("user_id = ?", userID).
			Select("COALESCE(MAX(seq), 0) + 1").
			Scan(&next).Error; err != nil {
			return err
		}
		return tx.Create(&database.UserPostRecord{UserID: userID, PostID: postID, Seq: next}).Error
	})
	if err != nil {
		r.logger.LogError(ctx, err, "AppendPost")
		return wrapStoreError(err)
	}
	return nil
}

func (r *userRepository) RemovePost(ctx context.Context, userID, postID string) error {
	defer observability.TrackQuery(r.driver, "RemovePost", "user_posts")()

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&database.UserPostRecord{}).Error
	if err != nil {
		r.logger.LogError(ctx, err, "RemovePost")
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	defer observability.TrackQuery(r.driver, "List", "users")()

	var recs []database.UserRecord
	if err := r.db.WithContext(ctx).Order("date_joined ASC, id ASC").Find(&recs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	var links []database.UserPostRecord
	if err := r.db.WithContext(ctx).Order("user_id ASC, seq ASC").Find(&links).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	byUser := make(map[string][]string, len(recs))
	for _, link := range links {
		byUser[link.UserID] = append(byUser[link.UserID], link.PostID)
	}

	users := make([]models.User, 0, len(recs))
	for i := range recs {
		users = append(users, *userFromRecord(&recs[i], byUser[recs[i].ID]))
	}
	return users, nil
}

func userFromRecord(rec *database.UserRecord, postIDs []string) *models.User {
	if postIDs == nil {
		postIDs = []string{}
	}
	return &models.User{
		ID:         rec.ID,
		Username:   rec.Username,
		Email:      rec.Email,
		Password:   rec.Password,
		DateJoined: rec.DateJoined,
		Image:      rec.Image,
		Posts:      postIDs,
	}
}

package repository

import (
	"context"
	"errors"

	"scribe/internal/database"
	"scribe/internal/models"
	"scribe/internal/observability"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoUserRepository struct {
	coll   *mongo.Collection
	logger *observability.RepoLogger
}

// NewMongoUserRepository returns a UserRepository over the users collection.
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{
		coll:   db.Collection(database.UsersCollection),
		logger: observability.NewRepoLogger(mongoDriver, database.UsersCollection),
	}
}

func (r *mongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.NewNotFoundError("User", id)
	}
	user, err := r.findOne(ctx, "GetByID", bson.M{"_id": oid})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", id)
	}
	return user, nil
}

func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "GetByEmail", bson.M{"email": email})
}

func (r *mongoUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "GetByUsername", bson.M{"username": username})
}

// findOne returns (nil, nil) when nothing matches.
func (r *mongoUserRepository) findOne(ctx context.Context, method string, filter bson.M) (*models.User, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, mongoDriver, method, database.UsersCollection)
	defer observability.TrackQuery(mongoDriver, method, database.UsersCollection)()

	var doc userDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		observability.EndSpan(span, nil)
		return nil, nil
	}
	observability.EndSpan(span, err)
	if err != nil {
		r.logger.LogError(ctx, err, method)
		return nil, models.NewInternalError(err)
	}
	return doc.toModel(), nil
}

func (r *mongoUserRepository) Create(ctx context.Context, user *models.User) error {
	ctx, span := observability.TraceRepositoryMethod(ctx, mongoDriver, "Create", database.UsersCollection)
	defer observability.TrackQuery(mongoDriver, "Create", database.UsersCollection)()

	doc := userDoc{
		ID:         primitive.NewObjectID(),
		Username:   user.Username,
		Email:      user.Email,
		Password:   user.Password,
		DateJoined: mongoTime(user.DateJoined),
		Image:      user.Image,
		Posts:      []primitive.ObjectID{},
	}
	_, err := r.coll.InsertOne(ctx, doc)
	observability.EndSpan(span, err)
	if err != nil {
		if isUniqueConstraintError(err) {
			return duplicateUserError()
		}
		r.logger.LogError(ctx, err, "Create")
		return models.NewInternalError(err)
	}

	user.ID = doc.ID.Hex()
	user.DateJoined = doc.DateJoined
	user.Posts = []string{}
	r.logger.LogCreate(ctx, map[string]interface{}{"user_id": user.ID})
	return nil
}

func (r *mongoUserRepository) UpdateProfile(ctx context.Context, id, username, email string) error {
	return r.updateOne(ctx, "UpdateProfile", id, bson.M{"$set": bson.M{"username": username, "email": email}})
}

func (r *mongoUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updateOne(ctx, "UpdatePassword", id, bson.M{"$set": bson.M{"password": passwordHash}})
}

func (r *mongoUserRepository) AppendPost(ctx context.Context, userID, postID string) error {
	pid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return models.NewNotFoundError("Post", postID)
	}
	return r.updateOne(ctx, "AppendPost", userID, bson.M{"$push": bson.M{"posts": pid}})
}

func (r *mongoUserRepository) RemovePost(ctx context.Context, userID, postID string) error {
	pid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return models.NewNotFoundError("Post", postID)
	}
	return r.updateOne(ctx, "RemovePost", userID, bson.M{"$pull": bson.M{"posts": pid}})
}

func (r *mongoUserRepository) updateOne(ctx context.Context, method, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.NewNotFoundError("User", id)
	}

	ctx, span := observability.TraceRepositoryMethod(ctx, mongoDriver, method, database.UsersCollection)
	defer observability.TrackQuery(mongoDriver, method, database.UsersCollection)()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	observability.EndSpan(span, err)
	if err != nil {
		if isUniqueConstraintError(err) {
			return duplicateUserError()
		}
		r.logger.LogError(ctx, err, method)
		return models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("User", id)
	}
	r.logger.LogUpdate(ctx, map[string]interface{}{"user_id": id, "method": method})
	return nil
}

func (r *mongoUserRepository) List(ctx context.Context) ([]models.User, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, mongoDriver, "List", database.UsersCollection)
	defer observability.TrackQuery(mongoDriver, "List", database.UsersCollection)()

	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "date_joined", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		observability.EndSpan(span, err)
		return nil, models.NewInternalError(err)
	}
	var docs []userDoc
	err = cursor.All(ctx, &docs)
	observability.EndSpan(span, err)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	users := make([]models.User, 0, len(docs))
	for i := range docs {
		users = append(users, *docs[i].toModel())
	}
	return users, nil
}

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
)

type mongoPostRepository struct {
	coll   *mongo.Collection
	logger *observability.RepoLogger
}

// NewMongoPostRepository returns a PostRepository over the posts collection.
func NewMongoPostRepository(db *mongo.Database) PostRepository {
	return &mongoPostRepository{
		coll:   db.Collection(database.PostsCollection),
		logger: observability.NewRepoLogger(mongoDriver, database.PostsCollection),
	}
}

func (r *mongoPostRepository) Create(ctx context.Context, post *models.Post) error {
	author, err := primitive.ObjectIDFromHex(post.AuthorID)
	if err != nil {
		return models.NewValidationError("Post author is invalid")
	}

	ctx, span := observability.TraceRepositoryMethod(ctx, mongoDriver, "Create", database.PostsCollection)
	defer observability.TrackQuery(mongoDriver, "Create", database.PostsCollection)()

	doc := postDoc{
		ID:         primitive.NewObjectID(),
		Author:     author,
		Title:      post.Title,
		Content:    post.Content,
		DatePosted: mongoTime(post.DatePosted),
	}
	_, err = r.coll.InsertOne(ctx, doc)
	observability.EndSpan(span, err)
	if err != nil {
		r.logger.LogError(ctx, err, "Create")
		return models.NewInternalError(err)
	}

	post.ID = doc.ID.Hex()
	post.DatePosted = doc.DatePosted
	r.logger.LogCreate(ctx, map[string]interface{}{"post_id": post.ID, "author": post.AuthorID})
	return nil
}

func (r *mongoPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.NewNotFoundError("Post", id)
	}

	ctx, span := observability.TraceRepositoryMethod(ctx, mongoDriver, "GetByID", database.PostsCollection)
	defer observability.TrackQuery(mongoDriver, "GetByID", database.PostsCollection)()

	var doc postDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		observability.EndSpan(span, nil)
		return nil, models.NewNotFoundError("Post", id)
	}
	observability.EndSpan(span, err)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return doc.toModel(), nil
}

func (r *mongoPostRepository) GetWithAuthor(ctx context.Context, id string) (*models.AuthoredPost, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.NewNotFoundError("Post", id)
	}
	posts, err := r.aggregate(ctx, "GetWithAuthor", PostWithAuthorPipeline(oid))
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, models.NewNotFoundError("Post", id)
	}
	return &posts[0], nil
}

func (r *mongoPostRepository) Update(ctx context.Context, id, title, content string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.NewNotFoundError("Post", id)
	}

	ctx, span := observability.TraceRepositoryMethod(ctx, mongoDriver, "Update", database.PostsCollection)
	defer observability.TrackQuery(mongoDriver, "Update", database.PostsCollection)()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"title": title, "content": content}})
	observability.EndSpan(span, err)
	if err != nil {
		r.logger.LogError(ctx, err, "Update")
		return models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.logger.LogUpdate(ctx, map[string]interface{}{"post_id": id})
	return nil
}

func (r *mongoPostRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.NewNotFoundError("Post", id)
	}

	ctx, span := observability.TraceRepositoryMethod(ctx, mongoDriver, "Delete", database.PostsCollection)
	defer observability.TrackQuery(mongoDriver, "Delete", database.PostsCollection)()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	observability.EndSpan(span, err)
	if err != nil {
		r.logger.LogError(ctx, err, "Delete")
		return models.NewInternalError(err)
	}
	if res.DeletedCount == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.logger.LogDelete(ctx, map[string]interface{}{"post_id": id})
	return nil
}

func (r *mongoPostRepository) Feed(ctx context.Context, q models.FeedQuery) ([]models.AuthoredPost, error) {
	return r.aggregate(ctx, "Feed", FeedPipeline(q))
}

func (r *mongoPostRepository) Count(ctx context.Context) (int64, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, mongoDriver, "Count", database.PostsCollection)
	defer observability.TrackQuery(mongoDriver, "Count", database.PostsCollection)()

	n, err := r.coll.CountDocuments(ctx, bson.D{})
	observability.EndSpan(span, err)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *mongoPostRepository) ListWithAuthors(ctx context.Context) ([]models.AuthoredPost, error) {
	return r.aggregate(ctx, "ListWithAuthors", AllPostsPipeline())
}

func (r *mongoPostRepository) ListByAuthor(ctx context.Context, authorID string) ([]models.AuthoredPost, error) {
	oid, err := primitive.ObjectIDFromHex(authorID)
	if err != nil {
		return nil, models.NewNotFoundError("User", authorID)
	}
	return r.aggregate(ctx, "ListByAuthor", AuthorPostsPipeline(oid))
}

func (r *mongoPostRepository) aggregate(ctx context.Context, method string, pipeline mongo.Pipeline) ([]models.AuthoredPost, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, mongoDriver, method, database.PostsCollection)
	defer observability.TrackQuery(mongoDriver, method, database.PostsCollection)()

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		observability.EndSpan(span, err)
		r.logger.LogError(ctx, err, method)
		return nil, models.NewInternalError(err)
	}

	var docs []authoredPostDoc
	err = cursor.All(ctx, &docs)
	observability.EndSpan(span, err)
	if err != nil {
		r.logger.LogError(ctx, err, method)
		return nil, models.NewInternalError(err)
	}

	posts := make([]models.AuthoredPost, 0, len(docs))
	for i := range docs {
		posts = append(posts, docs[i].toModel())
	}
	return posts, nil
}

// NewMongoStore bundles the Mongo repositories around an open database.
func NewMongoStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		Driver: mongoDriver,
		Users:  NewMongoUserRepository(db),
		Posts:  NewMongoPostRepository(db),
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		close: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	}
}

package repository

import (
	"scribe/internal/database"
	"scribe/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// authorJoinStages joins each post with its author document and keeps only
// the author fields that are rendered.
func authorJoinStages() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: database.UsersCollection},
			{Key: "localField", Value: "author"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "author_details"},
		}}},
		{{Key: "$unwind", Value: "$author_details"}},
		{{Key: "$project", Value: bson.D{
			{Key: "title", Value: 1},
			{Key: "content", Value: 1},
			{Key: "date_posted", Value: 1},
			{Key: "author", Value: 1},
			{Key: "author_details.username", Value: 1},
			{Key: "author_details.email", Value: 1},
		}}},
	}
}

// sortStage orders by date_posted, with _id as a tiebreak in the same direction.
func sortStage(order models.SortOrder) bson.D {
	dir := -1
	if order == models.SortOldest {
		dir = 1
	}
	return bson.D{{Key: "$sort", Value: bson.D{
		{Key: "date_posted", Value: dir},
		{Key: "_id", Value: dir},
	}}}
}

// FeedPipeline returns the aggregation for one feed page.
func FeedPipeline(q models.FeedQuery) mongo.Pipeline {
	q = q.Normalize()
	pipeline := authorJoinStages()
	pipeline = append(pipeline,
		sortStage(q.Sort),
		bson.D{{Key: "$skip", Value: int64(q.Skip())}},
		bson.D{{Key: "$limit", Value: int64(models.FeedPageSize)}},
	)
	return pipeline
}

// PostWithAuthorPipeline returns the aggregation for a single joined post.
func PostWithAuthorPipeline(id primitive.ObjectID) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: id}}}},
	}
	return append(pipeline, authorJoinStages()...)
}

// AllPostsPipeline returns every joined post, newest first.
func AllPostsPipeline() mongo.Pipeline {
	return append(authorJoinStages(), sortStage(models.SortNewest))
}

// AuthorPostsPipeline returns the joined posts of one author, newest first.
func AuthorPostsPipeline(authorID primitive.ObjectID) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "author", Value: authorID}}}},
	}
	pipeline = append(pipeline, authorJoinStages()...)
	return append(pipeline, sortStage(models.SortNewest))
}

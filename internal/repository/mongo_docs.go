package repository

import (
	"time"

	"scribe/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const mongoDriver = "mongo"

type userDoc struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty"`
	Username   string               `bson:"username"`
	Email      string               `bson:"email"`
	Password   string               `bson:"password"`
	DateJoined time.Time            `bson:"date_joined"`
	Image      string               `bson:"image"`
	Posts      []primitive.ObjectID `bson:"posts"`
}

func (d *userDoc) toModel() *models.User {
	posts := make([]string, 0, len(d.Posts))
	for _, id := range d.Posts {
		posts = append(posts, id.Hex())
	}
	return &models.User{
		ID:         d.ID.Hex(),
		Username:   d.Username,
		Email:      d.Email,
		Password:   d.Password,
		DateJoined: d.DateJoined,
		Image:      d.Image,
		Posts:      posts,
	}
}

type postDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Author     primitive.ObjectID `bson:"author"`
	Title      string             `bson:"title"`
	Content    string             `bson:"content"`
	DatePosted time.Time          `bson:"date_posted"`
}

func (d *postDoc) toModel() *models.Post {
	return &models.Post{
		ID:         d.ID.Hex(),
		AuthorID:   d.Author.Hex(),
		Title:      d.Title,
		Content:    d.Content,
		DatePosted: d.DatePosted,
	}
}

type authoredPostDoc struct {
	ID            primitive.ObjectID `bson:"_id"`
	Author        primitive.ObjectID `bson:"author"`
	Title         string             `bson:"title"`
	Content       string             `bson:"content"`
	DatePosted    time.Time          `bson:"date_posted"`
	AuthorDetails struct {
		Username string `bson:"username"`
		Email    string `bson:"email"`
	} `bson:"author_details"`
}

func (d *authoredPostDoc) toModel() models.AuthoredPost {
	return models.AuthoredPost{
		ID:         d.ID.Hex(),
		AuthorID:   d.Author.Hex(),
		Title:      d.Title,
		Content:    d.Content,
		DatePosted: d.DatePosted,
		AuthorDetails: models.AuthorDetails{
			Username: d.AuthorDetails.Username,
			Email:    d.AuthorDetails.Email,
		},
	}
}

// mongoTime truncates to the millisecond precision BSON dates keep.
func mongoTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

package database

import "time"

// UserRecord is the relational form of models.User. The ordered post list
// lives in user_posts.
type UserRecord struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Username   string    `gorm:"size:20;not null;uniqueIndex"`
	Email      string    `gorm:"size:255;not null;uniqueIndex"`
	Password   string    `gorm:"not null"`
	DateJoined time.Time `gorm:"not null"`
	Image      string    `gorm:"size:255;not null;default:default.jpg"`
}

// TableName returns the database table name for UserRecord.
func (UserRecord) TableName() string {
	return "users"
}

// PostRecord is the relational form of models.Post.
type PostRecord struct {
	ID         string     `gorm:"primaryKey;size:36"`
	AuthorID   string     `gorm:"size:36;not null;index"`
	Author     UserRecord `gorm:"foreignKey:AuthorID"`
	Title      string     `gorm:"size:100;not null"`
	Content    string     `gorm:"type:text;not null"`
	DatePosted time.Time  `gorm:"not null;index"`
}

// TableName returns the database table name for PostRecord.
func (PostRecord) TableName() string {
	return "posts"
}

// UserPostRecord is one entry of a user's ordered post list.
type UserPostRecord struct {
	UserID string `gorm:"primaryKey;size:36"`
	PostID string `gorm:"primaryKey;size:36"`
	Seq    int64  `gorm:"not null;index"`
}

// TableName returns the database table name for UserPostRecord.
func (UserPostRecord) TableName() string {
	return "user_posts"
}

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&UserRecord{},
		&PostRecord{},
		&UserPostRecord{},
	}
}

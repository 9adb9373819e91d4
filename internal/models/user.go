package models

import "time"

// DefaultImage is the profile image assigned to new accounts.
const DefaultImage = "default.jpg"

// User is a registered author. Posts holds the ids of the posts the user
// wrote, in creation order.
type User struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Password   string    `json:"-"`
	DateJoined time.Time `json:"date_joined"`
	Image      string    `json:"image"`
	Posts      []string  `json:"posts"`
}

// PublicUser is the shape returned by the users API.
type PublicUser struct {
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	DateJoined time.Time `json:"date_joined"`
	Image      string    `json:"image"`
	PostCount  int       `json:"post_count"`
}

// Public strips the password hash and storage ids.
func (u *User) Public() PublicUser {
	return PublicUser{
		Username:   u.Username,
		Email:      u.Email,
		DateJoined: u.DateJoined,
		Image:      u.Image,
		PostCount:  len(u.Posts),
	}
}

// OwnsPost reports whether postID appears in the user's post list.
func (u *User) OwnsPost(postID string) bool {
	for _, id := range u.Posts {
		if id == postID {
			return true
		}
	}
	return false
}

// Package models contains data structures for the application's domain models.
package models

import "time"

// Post is a single blog entry. AuthorID always references an existing User.
type Post struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	DatePosted time.Time `json:"date_posted"`
}

// AuthorDetails is the slice of the author document joined onto a post.
type AuthorDetails struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// AuthoredPost is a post joined with its author.
type AuthoredPost struct {
	ID            string        `json:"id"`
	AuthorID      string        `json:"author"`
	Title         string        `json:"title"`
	Content       string        `json:"content"`
	DatePosted    time.Time     `json:"date_posted"`
	AuthorDetails AuthorDetails `json:"author_details"`
}

// APIPost is the public JSON shape of a post; storage ids are omitted.
type APIPost struct {
	Title         string        `json:"title"`
	Content       string        `json:"content"`
	DatePosted    time.Time     `json:"date_posted"`
	AuthorDetails AuthorDetails `json:"author_details"`
}

// API converts the post to its public JSON shape.
func (p AuthoredPost) API() APIPost {
	return APIPost{
		Title:         p.Title,
		Content:       p.Content,
		DatePosted:    p.DatePosted,
		AuthorDetails: p.AuthorDetails,
	}
}

// Summary truncates the content for feed listings.
func (p AuthoredPost) Summary(limit int) string {
	runes := []rune(p.Content)
	if len(runes) <= limit {
		return p.Content
	}
	return string(runes[:limit]) + "..."
}

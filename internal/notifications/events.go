package notifications

import (
	"encoding/json"
	"fmt"
	"time"
)

// Feed event types pushed to live feed subscribers.
const (
	EventPostCreated = "post_created"
	EventPostUpdated = "post_updated"
	EventPostDeleted = "post_deleted"
)

// FeedEvent describes a change to the post feed.
type FeedEvent struct {
	Type   string    `json:"type"`
	PostID string    `json:"post_id"`
	Title  string    `json:"title,omitempty"`
	Author string    `json:"author,omitempty"`
	At     time.Time `json:"at"`
}

// NewFeedEvent stamps an event with the current time.
func NewFeedEvent(eventType, postID, title, author string) FeedEvent {
	return FeedEvent{
		Type:   eventType,
		PostID: postID,
		Title:  title,
		Author: author,
		At:     time.Now().UTC(),
	}
}

// Encode returns the wire form of the event.
func (e FeedEvent) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal feed event: %w", err)
	}
	return b, nil
}

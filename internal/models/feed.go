package models

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// FeedPageSize is the fixed number of posts on a feed page.
const FeedPageSize = 4

// MaxFeedPage keeps Skip from overflowing. Any larger page is past the end.
const MaxFeedPage = math.MaxInt / FeedPageSize

// SortOrder orders the feed by posting date.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// ParseSortOrder maps a query value to a SortOrder. Anything other than
// "oldest" sorts newest first.
func ParseSortOrder(raw string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(raw), string(SortOldest)) {
		return SortOldest
	}
	return SortNewest
}

// ParsePage parses a 1-based page number. Invalid input becomes 1 and
// oversized numbers become MaxFeedPage.
func ParsePage(raw string) int {
	raw = strings.TrimSpace(raw)
	page, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-") {
		return MaxFeedPage
	}
	if err != nil || page < 1 {
		return 1
	}
	if page > MaxFeedPage {
		return MaxFeedPage
	}
	return page
}

// FeedQuery selects one page of the feed.
type FeedQuery struct {
	Page int
	Sort SortOrder
}

// Normalize clamps the page and defaults the sort key.
func (q FeedQuery) Normalize() FeedQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxFeedPage {
		q.Page = MaxFeedPage
	}
	if q.Sort != SortOldest {
		q.Sort = SortNewest
	}
	return q
}

// Skip is the number of posts before this page.
func (q FeedQuery) Skip() int {
	return (q.Page - 1) * FeedPageSize
}

// FeedPage is one rendered page of the feed.
type FeedPage struct {
	Posts      []AuthoredPost `json:"posts"`
	Page       int            `json:"page"`
	Sort       SortOrder      `json:"sort"`
	Total      int64          `json:"total"`
	TotalPages int            `json:"total_pages"`
	HasPrev    bool           `json:"has_prev"`
	HasNext    bool           `json:"has_next"`
}

// TotalPages returns ceil(total / FeedPageSize).
func TotalPages(total int64) int {
	if total <= 0 {
		return 0
	}
	return int((total + FeedPageSize - 1) / FeedPageSize)
}

// NewFeedPage assembles page metadata around a slice of posts.
func NewFeedPage(q FeedQuery, posts []AuthoredPost, total int64) *FeedPage {
	if posts == nil {
		posts = []AuthoredPost{}
	}
	pages := TotalPages(total)
	return &FeedPage{
		Posts:      posts,
		Page:       q.Page,
		Sort:       q.Sort,
		Total:      total,
		TotalPages: pages,
		HasPrev:    q.Page > 1,
		HasNext:    q.Page < pages,
	}
}

// PrevPage and NextPage are used by the pager links. Past the end,
// Previous points at the last page.
func (p *FeedPage) PrevPage() int {
	if last := max(p.TotalPages, 1); p.Page > last {
		return last
	}
	return p.Page - 1
}

func (p *FeedPage) NextPage() int { return p.Page + 1 }

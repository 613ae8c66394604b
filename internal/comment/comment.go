package comment

import (
	"errors"
	"time"
)

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrBlogNotFound    = errors.New("blog not found")
)

// Comment is a visitor comment on a blog. Guests are identified by display
// name and an optional email; comments from logged-in users additionally carry
// the author reference. Every comment stays hidden until a moderator approves it.
type Comment struct {
	ID         int       `json:"id"`
	BlogID     int       `json:"blogId"`
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	Email      string    `json:"email,omitempty"`
	AuthorID   *int      `json:"author,omitempty"`
	IsApproved bool      `json:"isApproved"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ModerationEntry is a comment enriched with the parent blog, as shown in
// the moderation views.
type ModerationEntry struct {
	Comment
	BlogTitle    string `json:"blogTitle"`
	BlogAuthorID int    `json:"-"`
}

// Stats is the moderation dashboard breakdown.
type Stats struct {
	Total    int `json:"totalComments"`
	Approved int `json:"approvedComments"`
	Pending  int `json:"pendingComments"`
}

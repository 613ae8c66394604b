package blog

import (
	"errors"
	"time"
)

var (
	ErrBlogNotFound      = errors.New("blog not found")
	ErrMissingBlogFields = errors.New("missing required fields")
	ErrAuthorNotResolved = errors.New("author not found")
)

// Author is the blog author projection joined from the users table.
type Author struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Bio    string `json:"bio,omitempty"`
}

type Blog struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	SubTitle    string    `json:"subTitle"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Image       string    `json:"image"`
	IsPublished bool      `json:"isPublished"`
	Views       int       `json:"views"`
	Likes       []int     `json:"likes"`
	AuthorID    int       `json:"-"`
	Author      *Author   `json:"author,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

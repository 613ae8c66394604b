package test

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type blogPayload struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Image       string `json:"image"`
	IsPublished bool   `json:"isPublished"`
	Views       int    `json:"views"`
	Likes       []int  `json:"likes"`
	Author      *struct {
		Name string `json:"name"`
	} `json:"author"`
}

type blogsListResponse struct {
	apiResponse
	Blogs []blogPayload `json:"blogs"`
}

type singleBlogResponse struct {
	apiResponse
	Blog *blogPayload `json:"blog"`
}

func (s *IntegrationTestSuite) TestBlogPublishingFlow() {
	author, err := signupUser("Blog Author", "blog-author@bloghaven.test", testPassword)
	s.Require().NoError(err)

	// publish a blog, cover image goes through the (fake) CDN
	respBytes, status, err := postNewBlog(author.Token, map[string]any{
		"title":       "Integration Testing in Go",
		"subTitle":    "with dockertest",
		"description": "Spinning up real services in containers.",
		"category":    "Technology",
		"isPublished": true,
	})
	s.Require().NoError(err)
	s.Equal(http.StatusOK, status)
	s.Contains(string(respBytes), "Blog added successfully")

	// and a draft next to it
	respBytes, _, err = postNewBlog(author.Token, map[string]any{
		"title":       "Unfinished Draft",
		"description": "Still being written.",
		"category":    "Technology",
		"isPublished": false,
	})
	s.Require().NoError(err)
	s.Contains(string(respBytes), "Blog added successfully")

	listBytes, _, err := get("/api/blog/all", "")
	s.Require().NoError(err)

	var listResp blogsListResponse
	s.Require().NoError(json.Unmarshal(listBytes, &listResp))
	s.True(listResp.Success)

	var published *blogPayload
	for i := range listResp.Blogs {
		s.True(listResp.Blogs[i].IsPublished, "the public list must hold published blogs only")
		if listResp.Blogs[i].Title == "Integration Testing in Go" {
			published = &listResp.Blogs[i]
		}
	}
	s.Require().NotNil(published)
	s.Contains(published.Image, "cdn.test")
	s.Require().NotNil(published.Author)
	s.Equal("Blog Author", published.Author.Name)

	// reading a single blog bumps its view counter
	singleBytes, _, err := get(fmt.Sprintf("/api/blog/%d", published.ID), "")
	s.Require().NoError(err)

	var singleResp singleBlogResponse
	s.Require().NoError(json.Unmarshal(singleBytes, &singleResp))
	s.True(singleResp.Success)
	s.Require().NotNil(singleResp.Blog)
	s.Equal(1, singleResp.Blog.Views)
}

func (s *IntegrationTestSuite) TestBlogLikeToggle() {
	author, err := signupUser("Liked Author", "liked-author@bloghaven.test", testPassword)
	s.Require().NoError(err)
	liker, err := signupUser("The Liker", "the-liker@bloghaven.test", testPassword)
	s.Require().NoError(err)

	_, _, err = postNewBlog(author.Token, map[string]any{
		"title":       "A Likeable Post",
		"description": "Please like this.",
		"category":    "Lifestyle",
		"isPublished": true,
	})
	s.Require().NoError(err)
	blogID := s.findBlogID("A Likeable Post")

	likeBytes, _, err := postJSON(fmt.Sprintf("/api/blog/like/%d", blogID), liker.Token, nil)
	s.Require().NoError(err)
	s.Contains(string(likeBytes), "Blog liked")
	s.Contains(string(likeBytes), `"likes":1`)

	// same user again, the like flips off
	likeBytes, _, err = postJSON(fmt.Sprintf("/api/blog/like/%d", blogID), liker.Token, nil)
	s.Require().NoError(err)
	s.Contains(string(likeBytes), "Blog unliked")
	s.Contains(string(likeBytes), `"likes":0`)
}

func (s *IntegrationTestSuite) TestBlogOwnership() {
	owner, err := signupUser("The Owner", "the-owner@bloghaven.test", testPassword)
	s.Require().NoError(err)
	intruder, err := signupUser("The Intruder", "the-intruder@bloghaven.test", testPassword)
	s.Require().NoError(err)

	_, _, err = postNewBlog(owner.Token, map[string]any{
		"title":       "My Own Blog",
		"description": "Mine alone.",
		"category":    "Technology",
		"isPublished": true,
	})
	s.Require().NoError(err)
	blogID := s.findBlogID("My Own Blog")

	// another user cannot delete it
	respBytes, _, err := postJSON("/api/blog/delete", intruder.Token, map[string]int{"id": blogID})
	s.Require().NoError(err)
	s.Contains(string(respBytes), "You can only delete your own blogs")

	// the admin can
	adminToken, err := loginAdmin(testAdminEmail, testPassword)
	s.Require().NoError(err)
	respBytes, _, err = postJSON("/api/blog/delete", adminToken, map[string]int{"id": blogID})
	s.Require().NoError(err)
	s.Contains(string(respBytes), "Blog deleted successfully")
}

func (s *IntegrationTestSuite) TestGenerateContent() {
	author, err := signupUser("Gen Author", "gen-author@bloghaven.test", testPassword)
	s.Require().NoError(err)

	respBytes, _, err := postJSON("/api/blog/generate", author.Token, map[string]string{
		"prompt": "Write about integration testing",
	})
	s.Require().NoError(err)
	s.Contains(string(respBytes), "Generated blog content.")
}

func (s *IntegrationTestSuite) findBlogID(title string) int {
	listBytes, _, err := get("/api/blog/all", "")
	s.Require().NoError(err)

	var listResp blogsListResponse
	s.Require().NoError(json.Unmarshal(listBytes, &listResp))
	for _, b := range listResp.Blogs {
		if b.Title == title {
			return b.ID
		}
	}
	s.Require().Failf("blog not found", "no blog with title %q", title)
	return 0
}

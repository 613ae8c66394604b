package test

import (
	"encoding/json"
	"net/http"
)

type commentsListResponse struct {
	apiResponse
	Comments []struct {
		ID         int    `json:"id"`
		Name       string `json:"name"`
		Content    string `json:"content"`
		IsApproved bool   `json:"isApproved"`
	} `json:"comments"`
}

func (s *IntegrationTestSuite) TestCommentModerationFlow() {
	author, err := signupUser("Commented Author", "commented-author@bloghaven.test", testPassword)
	s.Require().NoError(err)

	_, _, err = postNewBlog(author.Token, map[string]any{
		"title":       "A Post Worth Commenting",
		"description": "Discuss below.",
		"category":    "Technology",
		"isPublished": true,
	})
	s.Require().NoError(err)
	blogID := s.findBlogID("A Post Worth Commenting")

	// an anonymous visitor leaves a comment, no token needed
	respBytes, status, err := postJSON("/api/blog/comment", "", map[string]any{
		"blog":    blogID,
		"name":    "Anonymous Reader",
		"content": "Great post!",
	})
	s.Require().NoError(err)
	s.Equal(http.StatusOK, status)
	s.Contains(string(respBytes), "Comment added for review")

	// not visible until approved
	listBytes, _, err := postJSON("/api/blog/comments", "", map[string]int{"blogId": blogID})
	s.Require().NoError(err)

	var listResp commentsListResponse
	s.Require().NoError(json.Unmarshal(listBytes, &listResp))
	s.True(listResp.Success)
	s.Empty(listResp.Comments)

	// the author sees it in the moderation queue
	queueBytes, _, err := get("/api/user/comments", author.Token)
	s.Require().NoError(err)

	var queueResp commentsListResponse
	s.Require().NoError(json.Unmarshal(queueBytes, &queueResp))
	s.Require().Len(queueResp.Comments, 1)
	s.False(queueResp.Comments[0].IsApproved)
	commentID := queueResp.Comments[0].ID

	// approve and it shows up publicly
	approveBytes, _, err := postJSON("/api/user/comments/approve", author.Token, map[string]int{
		"commentId": commentID,
	})
	s.Require().NoError(err)
	s.Contains(string(approveBytes), "Comment approved successfully")

	listBytes, _, err = postJSON("/api/blog/comments", "", map[string]int{"blogId": blogID})
	s.Require().NoError(err)
	s.Require().NoError(json.Unmarshal(listBytes, &listResp))
	s.Require().Len(listResp.Comments, 1)
	s.Equal("Great post!", listResp.Comments[0].Content)
}

func (s *IntegrationTestSuite) TestCommentModeration_foreignBlog() {
	author, err := signupUser("Mod Author", "mod-author@bloghaven.test", testPassword)
	s.Require().NoError(err)
	other, err := signupUser("Other Mod", "other-mod@bloghaven.test", testPassword)
	s.Require().NoError(err)

	_, _, err = postNewBlog(author.Token, map[string]any{
		"title":       "Moderated Post",
		"description": "Only mine to moderate.",
		"category":    "Startup",
		"isPublished": true,
	})
	s.Require().NoError(err)
	blogID := s.findBlogID("Moderated Post")

	_, _, err = postJSON("/api/blog/comment", "", map[string]any{
		"blog":    blogID,
		"name":    "Visitor",
		"content": "Nice.",
	})
	s.Require().NoError(err)

	queueBytes, _, err := get("/api/user/comments", author.Token)
	s.Require().NoError(err)
	var queueResp commentsListResponse
	s.Require().NoError(json.Unmarshal(queueBytes, &queueResp))
	s.Require().Len(queueResp.Comments, 1)
	commentID := queueResp.Comments[0].ID

	// a different author cannot approve it
	respBytes, _, err := postJSON("/api/user/comments/approve", other.Token, map[string]int{
		"commentId": commentID,
	})
	s.Require().NoError(err)
	s.Contains(string(respBytes), "You can only approve comments on your own blogs")

	// comments go away together with the blog
	adminToken, err := loginAdmin(testAdminEmail, testPassword)
	s.Require().NoError(err)
	respBytes, _, err = postJSON("/api/admin/delete-blog", adminToken, map[string]int{"id": blogID})
	s.Require().NoError(err)
	s.Contains(string(respBytes), "Blog deleted successfully")

	var commentsLeft int
	s.Require().NoError(
		s.DB.QueryRow("SELECT COUNT(*) FROM comments WHERE blog_id = $1", blogID).Scan(&commentsLeft),
	)
	s.Equal(0, commentsLeft)
}

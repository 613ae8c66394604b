package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloghaven/bloghaven/internal/auth"
	"github.com/bloghaven/bloghaven/internal/blog"
	"github.com/bloghaven/bloghaven/internal/comment"
	"github.com/bloghaven/bloghaven/internal/dashboard"
	"github.com/bloghaven/bloghaven/internal/telemetry/metrics"
	"github.com/bloghaven/bloghaven/internal/user"
	"github.com/bloghaven/bloghaven/pkg"
)

const testAdminEmail = "admin@example.com"

type blogAdminRepoMock struct {
	blogs map[int]*blog.Blog
}

func (m *blogAdminRepoMock) All(_ context.Context) ([]*blog.Blog, error) {
	var blogs []*blog.Blog
	for id := range m.blogs {
		blogs = append(blogs, m.blogs[id])
	}
	return blogs, nil
}

func (m *blogAdminRepoMock) Delete(_ context.Context, id int) error {
	if _, ok := m.blogs[id]; !ok {
		return blog.ErrBlogNotFound
	}
	delete(m.blogs, id)
	return nil
}

func (m *blogAdminRepoMock) TogglePublish(_ context.Context, id int) (bool, error) {
	b, ok := m.blogs[id]
	if !ok {
		return false, blog.ErrBlogNotFound
	}
	b.IsPublished = !b.IsPublished
	return b.IsPublished, nil
}

type commentAdminRepoMock struct {
	comments map[int]*comment.ModerationEntry
}

func (m *commentAdminRepoMock) ListAll(_ context.Context) ([]*comment.ModerationEntry, error) {
	var entries []*comment.ModerationEntry
	for id := range m.comments {
		entries = append(entries, m.comments[id])
	}
	return entries, nil
}

func (m *commentAdminRepoMock) Approve(_ context.Context, id int) error {
	c, ok := m.comments[id]
	if !ok {
		return comment.ErrCommentNotFound
	}
	c.IsApproved = true
	return nil
}

func (m *commentAdminRepoMock) Delete(_ context.Context, id int) error {
	if _, ok := m.comments[id]; !ok {
		return comment.ErrCommentNotFound
	}
	delete(m.comments, id)
	return nil
}

type adminUserEnsurerMock struct {
	ensuredEmail string
}

func (m *adminUserEnsurerMock) EnsureAdminUser(_ context.Context, email string) (*user.User, error) {
	m.ensuredEmail = email
	return &user.User{ID: 99, Name: "Admin", Email: email}, nil
}

type tokenIssuerMock struct{}

func (m *tokenIssuerMock) IssueAdmin(_ string) (string, error) {
	return "admin-test-token", nil
}

type dashboardProviderMock struct{}

func (m *dashboardProviderMock) ForAdmin(_ context.Context) (*dashboard.AdminDashboard, error) {
	return &dashboard.AdminDashboard{Blogs: 4, Comments: 9, Drafts: 2}, nil
}

func newTestHandler(t *testing.T) (*Handler, *blogAdminRepoMock, *commentAdminRepoMock, *adminUserEnsurerMock) {
	t.Helper()

	passwordHash, err := pkg.HashPassword("admin-password")
	require.NoError(t, err)

	blogs := &blogAdminRepoMock{blogs: map[int]*blog.Blog{
		1: {ID: 1, Title: "published one", IsPublished: true},
		2: {ID: 2, Title: "a draft", IsPublished: false},
	}}
	comments := &commentAdminRepoMock{comments: map[int]*comment.ModerationEntry{
		1: {Comment: comment.Comment{ID: 1, BlogID: 1, Name: "visitor"}},
	}}
	users := &adminUserEnsurerMock{}

	handler := NewHandler(
		Credentials{Email: testAdminEmail, PasswordHash: passwordHash},
		blogs,
		comments,
		users,
		&tokenIssuerMock{},
		&dashboardProviderMock{},
		metrics.NewTestManager(),
	)
	return handler, blogs, comments, users
}

func newTestRouter(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	adminRouter := r.PathPrefix("/api/admin").Subrouter()
	handler.SetupRoutes(adminRouter, adminRouter)
	return r
}

func adminRequest(req *http.Request) *http.Request {
	return req.WithContext(auth.ContextWithIdentity(
		req.Context(),
		auth.Identity{Actor: auth.ActorAdmin, Email: testAdminEmail},
	))
}

func newJSONRequest(t *testing.T, method, path string, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(t, err)
	return req
}

func TestHandler_handleLogin(t *testing.T) {
	handler, _, _, users := newTestHandler(t)
	r := newTestRouter(handler)

	t.Run("ok", func(t *testing.T) {
		req := newJSONRequest(t, "POST", "/api/admin/login", loginRequest{
			Email:    "Admin@Example.com",
			Password: "admin-password",
		})
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp loginResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "admin-test-token", resp.Token)
		assert.Equal(t, testAdminEmail, users.ensuredEmail)
	})

	t.Run("wrong password", func(t *testing.T) {
		req := newJSONRequest(t, "POST", "/api/admin/login", loginRequest{
			Email:    testAdminEmail,
			Password: "nope",
		})
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Contains(t, rr.Body.String(), "Invalid Credentials")
	})

	t.Run("wrong email", func(t *testing.T) {
		req := newJSONRequest(t, "POST", "/api/admin/login", loginRequest{
			Email:    "someone@example.com",
			Password: "admin-password",
		})
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Contains(t, rr.Body.String(), "Invalid Credentials")
	})
}

func TestHandler_protectedRoutes_requireAdmin(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)
	r := newTestRouter(handler)

	for caseName, route := range map[string]struct {
		method string
		path   string
	}{
		"blogs":           {method: "GET", path: "/api/admin/blogs"},
		"comments":        {method: "GET", path: "/api/admin/comments"},
		"dashboard":       {method: "GET", path: "/api/admin/dashboard"},
		"approve-comment": {method: "POST", path: "/api/admin/approve-comment"},
		"delete-comment":  {method: "POST", path: "/api/admin/delete-comment"},
		"delete-blog":     {method: "POST", path: "/api/admin/delete-blog"},
		"toggle-publish":  {method: "POST", path: "/api/admin/toggle-publish"},
	} {
		t.Run(caseName+" as user", func(t *testing.T) {
			req, err := http.NewRequest(route.method, route.path, bytes.NewReader([]byte(`{}`)))
			require.NoError(t, err)
			req = req.WithContext(auth.ContextWithIdentity(
				req.Context(),
				auth.Identity{Actor: auth.ActorUser, UserID: 1, Email: "u@example.com"},
			))
			rr := httptest.NewRecorder()

			r.ServeHTTP(rr, req)
			assert.Contains(t, rr.Body.String(), "Unauthorized")
		})
	}
}

func TestHandler_handleBlogs(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)
	r := newTestRouter(handler)

	req, err := http.NewRequest("GET", "/api/admin/blogs", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, adminRequest(req))

	var resp blogsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	// drafts included
	assert.Len(t, resp.Blogs, 2)
}

func TestHandler_handleDashboard(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)
	r := newTestRouter(handler)

	req, err := http.NewRequest("GET", "/api/admin/dashboard", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, adminRequest(req))

	var resp dashboardResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Dashboard)
	assert.Equal(t, 4, resp.Dashboard.Blogs)
	assert.Equal(t, 9, resp.Dashboard.Comments)
	assert.Equal(t, 2, resp.Dashboard.Drafts)
}

func TestHandler_commentModeration(t *testing.T) {
	handler, _, comments, _ := newTestHandler(t)
	r := newTestRouter(handler)

	t.Run("approve", func(t *testing.T) {
		req := adminRequest(newJSONRequest(t, "POST", "/api/admin/approve-comment", commentIDRequest{CommentID: 1}))
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Contains(t, rr.Body.String(), "Comment approved successfully")
		assert.True(t, comments.comments[1].IsApproved)
	})

	t.Run("delete", func(t *testing.T) {
		req := adminRequest(newJSONRequest(t, "POST", "/api/admin/delete-comment", commentIDRequest{CommentID: 1}))
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Contains(t, rr.Body.String(), "Comment deleted successfully")
		assert.Nil(t, comments.comments[1])
	})

	t.Run("approve unknown", func(t *testing.T) {
		req := adminRequest(newJSONRequest(t, "POST", "/api/admin/approve-comment", commentIDRequest{CommentID: 666}))
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Contains(t, rr.Body.String(), "Comment not found")
	})
}

func TestHandler_blogModeration(t *testing.T) {
	handler, blogs, _, _ := newTestHandler(t)
	r := newTestRouter(handler)

	t.Run("publish draft", func(t *testing.T) {
		req := adminRequest(newJSONRequest(t, "POST", "/api/admin/toggle-publish", blogIDRequest{ID: 2}))
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Contains(t, rr.Body.String(), "Blog published successfully")
		assert.True(t, blogs.blogs[2].IsPublished)
	})

	t.Run("unpublish again", func(t *testing.T) {
		req := adminRequest(newJSONRequest(t, "POST", "/api/admin/toggle-publish", blogIDRequest{ID: 2}))
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Contains(t, rr.Body.String(), "Blog unpublished successfully")
		assert.False(t, blogs.blogs[2].IsPublished)
	})

	t.Run("delete", func(t *testing.T) {
		req := adminRequest(newJSONRequest(t, "POST", "/api/admin/delete-blog", blogIDRequest{ID: 1}))
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)
		assert.Contains(t, rr.Body.String(), "Blog deleted successfully")
		assert.Nil(t, blogs.blogs[1])
	})
}

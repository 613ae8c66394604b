package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloghaven/bloghaven/internal/auth"
	"github.com/bloghaven/bloghaven/pkg"
)

const testAdminEmail = "admin@example.com"

func newTestAuthMiddleware(t *testing.T) (*AuthMiddlewareHandler, *auth.Service) {
	t.Helper()
	tokens, err := auth.NewService("test-secret")
	require.NoError(t, err)
	return NewAuthMiddlewareHandler(tokens, testAdminEmail), tokens
}

func identityCapturingHandler(captured *auth.Identity, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if id, ok := auth.IdentityFromContext(r.Context()); ok {
			*captured = id
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthCheck_MissingToken(t *testing.T) {
	handler, _ := newTestAuthMiddleware(t)

	var called bool
	var id auth.Identity
	mw := handler.AuthCheck()(identityCapturingHandler(&id, &called))

	req := httptest.NewRequest("POST", "/api/blog/delete", nil)
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, req)

	assert.False(t, called)
	// auth failures keep the 200 + success=false envelope
	assert.Equal(t, http.StatusOK, rr.Code)
	var resp pkg.ApiResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "No token provided", resp.Message)
}

func TestAuthCheck_InvalidToken(t *testing.T) {
	handler, _ := newTestAuthMiddleware(t)

	var called bool
	var id auth.Identity
	mw := handler.AuthCheck()(identityCapturingHandler(&id, &called))

	req := httptest.NewRequest("POST", "/api/blog/delete", nil)
	req.Header.Set("Authorization", "complete.garbage.token")
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusOK, rr.Code)
	var resp pkg.ApiResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Invalid token", resp.Message)
}

func TestAuthCheck_ValidUserToken(t *testing.T) {
	handler, tokens := newTestAuthMiddleware(t)

	token, err := tokens.IssueUser(42, "bob@example.com")
	require.NoError(t, err)

	var called bool
	var id auth.Identity
	mw := handler.AuthCheck()(identityCapturingHandler(&id, &called))

	req := httptest.NewRequest("POST", "/api/blog/delete", nil)
	// the token travels raw, without a Bearer prefix
	req.Header.Set("Authorization", token)
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, req)

	require.True(t, called)
	assert.Equal(t, auth.ActorUser, id.Actor)
	assert.Equal(t, 42, id.UserID)
	assert.Equal(t, "bob@example.com", id.Email)
}

func TestAuthCheck_ValidAdminToken(t *testing.T) {
	handler, tokens := newTestAuthMiddleware(t)

	token, err := tokens.IssueAdmin(testAdminEmail)
	require.NoError(t, err)

	var called bool
	var id auth.Identity
	mw := handler.AuthCheck()(identityCapturingHandler(&id, &called))

	req := httptest.NewRequest("GET", "/api/admin/dashboard", nil)
	req.Header.Set("Authorization", token)
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, req)

	require.True(t, called)
	assert.True(t, id.IsAdmin())
	assert.Equal(t, testAdminEmail, id.Email)
}

func TestAuthCheck_PublicPaths(t *testing.T) {
	handler, _ := newTestAuthMiddleware(t)

	for name, req := range map[string]*http.Request{
		"signup":         httptest.NewRequest("POST", "/api/user/signup", nil),
		"login":          httptest.NewRequest("POST", "/api/user/login", nil),
		"admin login":    httptest.NewRequest("POST", "/api/admin/login", nil),
		"blog list":      httptest.NewRequest("GET", "/api/blog/all", nil),
		"single blog":    httptest.NewRequest("GET", "/api/blog/123", nil),
		"submit comment": httptest.NewRequest("POST", "/api/blog/comment", nil),
		"blog comments":  httptest.NewRequest("POST", "/api/blog/comments", nil),
	} {
		t.Run(name, func(t *testing.T) {
			var called bool
			var id auth.Identity
			mw := handler.AuthCheck()(identityCapturingHandler(&id, &called))

			rr := httptest.NewRecorder()
			mw.ServeHTTP(rr, req)
			assert.True(t, called, "request should pass without a token")
		})
	}

	// blog mutations stay protected even though blog reads are public
	for name, req := range map[string]*http.Request{
		"add blog":       httptest.NewRequest("POST", "/api/blog/add", nil),
		"delete blog":    httptest.NewRequest("POST", "/api/blog/delete", nil),
		"toggle publish": httptest.NewRequest("POST", "/api/blog/toggle-publish", nil),
		"like blog":      httptest.NewRequest("POST", "/api/blog/like/1", nil),
		"generate":       httptest.NewRequest("POST", "/api/blog/generate", nil),
	} {
		t.Run(name+" protected", func(t *testing.T) {
			var called bool
			var id auth.Identity
			mw := handler.AuthCheck()(identityCapturingHandler(&id, &called))

			rr := httptest.NewRecorder()
			mw.ServeHTTP(rr, req)
			assert.False(t, called, "request should not pass without a token")
		})
	}
}

// a valid token on a public path still resolves an identity, so e.g. comments
// submitted by logged-in users keep their author reference
func TestAuthCheck_PublicPathWithToken(t *testing.T) {
	handler, tokens := newTestAuthMiddleware(t)

	token, err := tokens.IssueUser(42, "bob@example.com")
	require.NoError(t, err)

	var called bool
	var id auth.Identity
	mw := handler.AuthCheck()(identityCapturingHandler(&id, &called))

	req := httptest.NewRequest("POST", "/api/blog/comment", nil)
	req.Header.Set("Authorization", token)
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, req)

	require.True(t, called)
	assert.Equal(t, auth.ActorUser, id.Actor)
	assert.Equal(t, 42, id.UserID)

	// a garbage token on a public path does not block the request
	called = false
	req = httptest.NewRequest("POST", "/api/blog/comment", nil)
	req.Header.Set("Authorization", "complete.garbage.token")
	rr = httptest.NewRecorder()
	mw.ServeHTTP(rr, req)
	assert.True(t, called)
}


package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/bloghaven/bloghaven/internal/auth"
	"github.com/bloghaven/bloghaven/internal/blog"
	"github.com/bloghaven/bloghaven/internal/comment"
	"github.com/bloghaven/bloghaven/internal/dashboard"
	"github.com/bloghaven/bloghaven/internal/telemetry/metrics"
	"github.com/bloghaven/bloghaven/internal/user"
	"github.com/bloghaven/bloghaven/pkg"
)

// Credentials are the configured admin login credentials. The password is
// stored and compared as a bcrypt hash, never in plain text.
type Credentials struct {
	Email        string
	PasswordHash string
}

type blogAdminRepo interface {
	All(ctx context.Context) ([]*blog.Blog, error)
	Delete(ctx context.Context, id int) error
	TogglePublish(ctx context.Context, id int) (bool, error)
}

type commentAdminRepo interface {
	ListAll(ctx context.Context) ([]*comment.ModerationEntry, error)
	Approve(ctx context.Context, id int) error
	Delete(ctx context.Context, id int) error
}

type adminUserEnsurer interface {
	EnsureAdminUser(ctx context.Context, email string) (*user.User, error)
}

type tokenIssuer interface {
	IssueAdmin(email string) (string, error)
}

type dashboardProvider interface {
	ForAdmin(ctx context.Context) (*dashboard.AdminDashboard, error)
}

type Handler struct {
	credentials    Credentials
	blogs          blogAdminRepo
	comments       commentAdminRepo
	users          adminUserEnsurer
	tokens         tokenIssuer
	dashboards     dashboardProvider
	metricsManager *metrics.Manager
}

func NewHandler(
	credentials Credentials,
	blogs blogAdminRepo,
	comments commentAdminRepo,
	users adminUserEnsurer,
	tokens tokenIssuer,
	dashboards dashboardProvider,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		credentials:    credentials,
		blogs:          blogs,
		comments:       comments,
		users:          users,
		tokens:         tokens,
		dashboards:     dashboards,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router, loginRouter *mux.Router) {
	loginRouter.HandleFunc("/login", handler.handleLogin).Methods("POST", "OPTIONS").Name("admin-login")
	router.HandleFunc("/blogs", handler.handleBlogs).Methods("GET", "OPTIONS").Name("admin-blogs")
	router.HandleFunc("/comments", handler.handleComments).Methods("GET", "OPTIONS").Name("admin-comments")
	router.HandleFunc("/dashboard", handler.handleDashboard).Methods("GET", "OPTIONS").Name("admin-dashboard")
	router.HandleFunc("/approve-comment", handler.handleApproveComment).Methods("POST", "OPTIONS").Name("admin-approve-comment")
	router.HandleFunc("/delete-comment", handler.handleDeleteComment).Methods("POST", "OPTIONS").Name("admin-delete-comment")
	router.HandleFunc("/delete-blog", handler.handleDeleteBlog).Methods("POST", "OPTIONS").Name("admin-delete-blog")
	router.HandleFunc("/toggle-publish", handler.handleTogglePublish).Methods("POST", "OPTIONS").Name("admin-toggle-publish")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	pkg.ApiResponse
	Token string `json:"token"`
}

// handleLogin checks the credentials against the configured admin account
// and hands out an admin token. The admin's user row is materialized here,
// so admin-authored blogs always have a valid author reference.
func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteApiFailure(w, "Invalid Credentials")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email != strings.ToLower(handler.credentials.Email) ||
		!pkg.CheckPasswordHash(req.Password, handler.credentials.PasswordHash) {
		pkg.WriteApiFailure(w, "Invalid Credentials")
		return
	}

	if _, err := handler.users.EnsureAdminUser(r.Context(), req.Email); err != nil {
		log.Errorf("admin login, ensure admin user: %s", err)
		pkg.WriteApiFailure(w, "Login failed")
		return
	}

	token, err := handler.tokens.IssueAdmin(req.Email)
	if err != nil {
		log.Errorf("admin login, issue token: %s", err)
		pkg.WriteApiFailure(w, "Login failed")
		return
	}

	log.Debugf("admin [%s] logged in", req.Email)
	if handler.metricsManager != nil {
		handler.metricsManager.CounterLogins.Inc()
	}

	pkg.WriteApiResponse(w, loginResponse{
		ApiResponse: pkg.ApiResponse{Success: true},
		Token:       token,
	})
}

// requireAdmin writes the failure response itself when the caller is not
// the admin.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || !identity.IsAdmin() {
		pkg.WriteApiFailure(w, "Unauthorized")
		return false
	}
	return true
}

type blogsResponse struct {
	pkg.ApiResponse
	Blogs []*blog.Blog `json:"blogs"`
}

// handleBlogs lists every blog on the platform, drafts included.
func (handler *Handler) handleBlogs(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	blogs, err := handler.blogs.All(r.Context())
	if err != nil {
		log.Errorf("admin, get all blogs: %s", err)
		pkg.WriteApiFailure(w, "Failed to get blogs")
		return
	}
	if blogs == nil {
		blogs = []*blog.Blog{}
	}

	pkg.WriteApiResponse(w, blogsResponse{
		ApiResponse: pkg.ApiResponse{Success: true},
		Blogs:       blogs,
	})
}

type commentsResponse struct {
	pkg.ApiResponse
	Comments []*comment.ModerationEntry `json:"comments"`
}

func (handler *Handler) handleComments(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	comments, err := handler.comments.ListAll(r.Context())
	if err != nil {
		log.Errorf("admin, get all comments: %s", err)
		pkg.WriteApiFailure(w, "Failed to get comments")
		return
	}
	if comments == nil {
		comments = []*comment.ModerationEntry{}
	}

	pkg.WriteApiResponse(w, commentsResponse{
		ApiResponse: pkg.ApiResponse{Success: true},
		Comments:    comments,
	})
}

type dashboardResponse struct {
	pkg.ApiResponse
	Dashboard *dashboard.AdminDashboard `json:"dashboard"`
}

func (handler *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	d, err := handler.dashboards.ForAdmin(r.Context())
	if err != nil {
		log.Errorf("admin dashboard: %s", err)
		pkg.WriteApiFailure(w, "Failed to get dashboard")
		return
	}

	pkg.WriteApiResponse(w, dashboardResponse{
		ApiResponse: pkg.ApiResponse{Success: true},
		Dashboard:   d,
	})
}

type commentIDRequest struct {
	CommentID int `json:"commentId"`
}

func (handler *Handler) handleApproveComment(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var req commentIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteApiFailure(w, "Comment not found")
		return
	}

	if err := handler.comments.Approve(r.Context(), req.CommentID); err != nil {
		if errors.Is(err, comment.ErrCommentNotFound) {
			pkg.WriteApiFailure(w, "Comment not found")
			return
		}
		log.Errorf("admin, approve comment %d: %s", req.CommentID, err)
		pkg.WriteApiFailure(w, "Failed to approve comment")
		return
	}

	pkg.WriteApiSuccess(w, "Comment approved successfully")
}

func (handler *Handler) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var req commentIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteApiFailure(w, "Comment not found")
		return
	}

	if err := handler.comments.Delete(r.Context(), req.CommentID); err != nil {
		if errors.Is(err, comment.ErrCommentNotFound) {
			pkg.WriteApiFailure(w, "Comment not found")
			return
		}
		log.Errorf("admin, delete comment %d: %s", req.CommentID, err)
		pkg.WriteApiFailure(w, "Failed to delete comment")
		return
	}

	pkg.WriteApiSuccess(w, "Comment deleted successfully")
}

type blogIDRequest struct {
	ID int `json:"id"`
}

func (handler *Handler) handleDeleteBlog(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var req blogIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteApiFailure(w, "Blog not found")
		return
	}

	if err := handler.blogs.Delete(r.Context(), req.ID); err != nil {
		if errors.Is(err, blog.ErrBlogNotFound) {
			pkg.WriteApiFailure(w, "Blog not found")
			return
		}
		log.Errorf("admin, delete blog %d: %s", req.ID, err)
		pkg.WriteApiFailure(w, "Failed to delete blog")
		return
	}

	pkg.WriteApiSuccess(w, "Blog deleted successfully")
}

func (handler *Handler) handleTogglePublish(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var req blogIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteApiFailure(w, "Blog not found")
		return
	}

	isPublished, err := handler.blogs.TogglePublish(r.Context(), req.ID)
	if err != nil {
		if errors.Is(err, blog.ErrBlogNotFound) {
			pkg.WriteApiFailure(w, "Blog not found")
			return
		}
		log.Errorf("admin, toggle publish for blog %d: %s", req.ID, err)
		pkg.WriteApiFailure(w, "Failed to update blog")
		return
	}

	if isPublished {
		pkg.WriteApiSuccess(w, "Blog published successfully")
	} else {
		pkg.WriteApiSuccess(w, "Blog unpublished successfully")
	}
}

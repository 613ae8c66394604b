package comment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/bloghaven/bloghaven/internal/auth"
	"github.com/bloghaven/bloghaven/internal/telemetry/metrics"
	"github.com/bloghaven/bloghaven/pkg"
)

type commentRepo interface {
	Add(ctx context.Context, c *Comment) error
	ApprovedForBlog(ctx context.Context, blogID int) ([]*Comment, error)
	ListForAuthor(ctx context.Context, authorID int) ([]*ModerationEntry, error)
	GetWithBlog(ctx context.Context, id int) (*ModerationEntry, error)
	Approve(ctx context.Context, id int) error
	Delete(ctx context.Context, id int) error
	StatsForAuthor(ctx context.Context, authorID int) (Stats, error)
}

type Handler struct {
	repo           commentRepo
	metricsManager *metrics.Manager
}

func NewHandler(repo commentRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		metricsManager: metricsManager,
	}
}

// SetupPublicRoutes mounts the visitor-facing endpoints on the blog subrouter.
func (handler *Handler) SetupPublicRoutes(router *mux.Router) {
	router.HandleFunc("/comment", handler.handleAdd).Methods("POST", "OPTIONS").Name("add-comment")
	router.HandleFunc("/comments", handler.handleForBlog).Methods("POST", "OPTIONS").Name("blog-comments")
}

// SetupModerationRoutes mounts the author moderation endpoints on the user
// subrouter. All of them sit behind the auth middleware.
func (handler *Handler) SetupModerationRoutes(router *mux.Router) {
	router.HandleFunc("/comments", handler.handleList).Methods("GET", "OPTIONS").Name("user-comments")
	router.HandleFunc("/comments/stats", handler.handleStats).Methods("GET", "OPTIONS").Name("user-comments-stats")
	router.HandleFunc("/comments/approve", handler.handleApprove).Methods("POST", "OPTIONS").Name("approve-comment")
	router.HandleFunc("/comments/delete", handler.handleDelete).Methods("POST", "OPTIONS").Name("delete-comment")
}

type addCommentRequest struct {
	Blog    int    `json:"blog"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Email   string `json:"email"`
}

// handleAdd accepts a visitor comment. It always lands unapproved and shows
// up nowhere until a moderator lets it through. Guests may leave an email;
// a logged-in submitter gets the author reference recorded.
func (handler *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteApiFailure(w, "Missing required fields")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Content = strings.TrimSpace(req.Content)
	if req.Blog == 0 || req.Name == "" || req.Content == "" {
		pkg.WriteApiFailure(w, "Missing required fields")
		return
	}

	c := &Comment{
		BlogID:  req.Blog,
		Name:    req.Name,
		Content: req.Content,
		Email:   strings.TrimSpace(req.Email),
	}
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		if identity.Actor == auth.ActorUser && identity.UserID != 0 {
			userID := identity.UserID
			c.AuthorID = &userID
		}
	}
	if err := handler.repo.Add(r.Context(), c); err != nil {
		if errors.Is(err, ErrBlogNotFound) {
			pkg.WriteApiFailure(w, "Blog not found")
			return
		}
		log.Errorf("add comment for blog %d: %s", req.Blog, err)
		pkg.WriteApiFailure(w, "Failed to add comment")
		return
	}

	if handler.metricsManager != nil {
		handler.metricsManager.CounterCommentsSubmitted.Inc()
	}

	pkg.WriteApiSuccess(w, "Comment added for review")
}

type blogCommentsRequest struct {
	BlogID int `json:"blogId"`
}

type commentsResponse struct {
	pkg.ApiResponse
	Comments []*Comment `json:"comments"`
}

func (handler *Handler) handleForBlog(w http.ResponseWriter, r *http.Request) {
	var req blogCommentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteApiFailure(w, "Missing required fields")
		return
	}

	comments, err := handler.repo.ApprovedForBlog(r.Context(), req.BlogID)
	if err != nil {
		log.Errorf("get comments for blog %d: %s", req.BlogID, err)
		pkg.WriteApiFailure(w, "Failed to get comments")
		return
	}
	if comments == nil {
		comments = []*Comment{}
	}

	pkg.WriteApiResponse(w, commentsResponse{
		ApiResponse: pkg.ApiResponse{Success: true},
		Comments:    comments,
	})
}

type moderationListResponse struct {
	pkg.ApiResponse
	Comments []*ModerationEntry `json:"comments"`
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity.Actor != auth.ActorUser || identity.UserID == 0 {
		pkg.WriteApiFailure(w, "Unauthorized")
		return
	}

	entries, err := handler.repo.ListForAuthor(r.Context(), identity.UserID)
	if err != nil {
		log.Errorf("list comments for author %d: %s", identity.UserID, err)
		pkg.WriteApiFailure(w, "Failed to get comments")
		return
	}
	if entries == nil {
		entries = []*ModerationEntry{}
	}

	pkg.WriteApiResponse(w, moderationListResponse{
		ApiResponse: pkg.ApiResponse{Success: true},
		Comments:    entries,
	})
}

type statsResponse struct {
	pkg.ApiResponse
	Stats Stats `json:"stats"`
}

func (handler *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity.Actor != auth.ActorUser || identity.UserID == 0 {
		pkg.WriteApiFailure(w, "Unauthorized")
		return
	}

	stats, err := handler.repo.StatsForAuthor(r.Context(), identity.UserID)
	if err != nil {
		log.Errorf("comment stats for author %d: %s", identity.UserID, err)
		pkg.WriteApiFailure(w, "Failed to get comment stats")
		return
	}

	pkg.WriteApiResponse(w, statsResponse{
		ApiResponse: pkg.ApiResponse{Success: true},
		Stats:       stats,
	})
}

type commentIDRequest struct {
	CommentID int `json:"commentId"`
}

func (handler *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	entry, ok := handler.moderatedComment(w, r, "You can only approve comments on your own blogs")
	if !ok {
		return
	}

	if err := handler.repo.Approve(r.Context(), entry.ID); err != nil {
		log.Errorf("approve comment %d: %s", entry.ID, err)
		pkg.WriteApiFailure(w, "Failed to approve comment")
		return
	}

	pkg.WriteApiSuccess(w, "Comment approved successfully")
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	entry, ok := handler.moderatedComment(w, r, "You can only delete comments on your own blogs")
	if !ok {
		return
	}

	if err := handler.repo.Delete(r.Context(), entry.ID); err != nil {
		log.Errorf("delete comment %d: %s", entry.ID, err)
		pkg.WriteApiFailure(w, "Failed to delete comment")
		return
	}

	pkg.WriteApiSuccess(w, "Comment deleted successfully")
}

// moderatedComment loads the target comment and runs the ownership check,
// writing the failure response itself when the caller may not touch it.
func (handler *Handler) moderatedComment(
	w http.ResponseWriter,
	r *http.Request,
	forbiddenMessage string,
) (*ModerationEntry, bool) {
	var req commentIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteApiFailure(w, "Comment not found")
		return nil, false
	}

	entry, err := handler.repo.GetWithBlog(r.Context(), req.CommentID)
	if err != nil {
		if !errors.Is(err, ErrCommentNotFound) {
			log.Errorf("get comment %d: %s", req.CommentID, err)
		}
		pkg.WriteApiFailure(w, "Comment not found")
		return nil, false
	}

	identity, _ := auth.IdentityFromContext(r.Context())
	if err := auth.CanModerateComment(identity, entry.BlogAuthorID); err != nil {
		pkg.WriteApiFailure(w, forbiddenMessage)
		return nil, false
	}

	return entry, true
}

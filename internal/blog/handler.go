package blog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/bloghaven/bloghaven/internal/auth"
	"github.com/bloghaven/bloghaven/internal/telemetry/metrics"
	"github.com/bloghaven/bloghaven/pkg"
)

const maxImageUploadBytes = 32 << 20 // 32 MB

type blogRepo interface {
	Add(ctx context.Context, b *Blog) error
	GetByID(ctx context.Context, id int) (*Blog, error)
	AllPublished(ctx context.Context) ([]*Blog, error)
	Delete(ctx context.Context, id int) error
	TogglePublish(ctx context.Context, id int) (bool, error)
	IncrementViews(ctx context.Context, id int) error
	ToggleLike(ctx context.Context, blogID, userID int) (liked bool, likesCount int, err error)
}

type authorResolver interface {
	AuthorIDByEmail(ctx context.Context, email string) (int, error)
}

type imageUploader interface {
	Upload(ctx context.Context, fileName string, data []byte) (filePath string, err error)
	TransformedURL(filePath string) string
}

type contentGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Handler struct {
	repo           blogRepo
	authors        authorResolver
	images         imageUploader
	generator      contentGenerator
	metricsManager *metrics.Manager
}

func NewHandler(
	repo blogRepo,
	authors authorResolver,
	images imageUploader,
	generator contentGenerator,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		repo:           repo,
		authors:        authors,
		images:         images,
		generator:      generator,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/add", handler.handleAdd).Methods("POST", "OPTIONS").Name("add-blog")
	router.HandleFunc("/all", handler.handleAll).Methods("GET", "OPTIONS").Name("all-blogs")
	router.HandleFunc("/delete", handler.handleDelete).Methods("POST", "OPTIONS").Name("delete-blog")
	router.HandleFunc("/toggle-publish", handler.handleTogglePublish).Methods("POST", "OPTIONS").Name("toggle-publish")
	router.HandleFunc("/generate", handler.handleGenerate).Methods("POST", "OPTIONS").Name("generate-content")
	router.HandleFunc("/like/{blogId}", handler.handleLike).Methods("POST", "OPTIONS").Name("like-blog")
	router.HandleFunc("/{blogId}", handler.handleGet).Methods("GET", "OPTIONS").Name("get-blog")
}

type newBlogRequest struct {
	Title       string `json:"title"`
	SubTitle    string `json:"subTitle"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsPublished bool   `json:"isPublished"`
}

type blogIDRequest struct {
	ID int `json:"id"`
}

// handleAdd creates a blog from a multipart request: a "blog" field holding
// the JSON payload, and an "image" file that is pushed to the image service.
func (handler *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		log.Errorf("add blog, parse multipart form: %s", err)
		pkg.WriteApiFailure(w, "Missing required fields")
		return
	}

	var newBlogReq newBlogRequest
	if err := json.Unmarshal([]byte(r.FormValue("blog")), &newBlogReq); err != nil {
		log.Errorf("add blog, unmarshal blog payload: %s", err)
		pkg.WriteApiFailure(w, "Missing required fields")
		return
	}

	imageFile, imageHeader, err := r.FormFile("image")
	if err != nil || newBlogReq.Title == "" || newBlogReq.Description == "" || newBlogReq.Category == "" {
		pkg.WriteApiFailure(w, "Missing required fields")
		return
	}
	defer func() { _ = imageFile.Close() }()

	imageBytes, err := io.ReadAll(imageFile)
	if err != nil {
		log.Errorf("add blog, read image file: %s", err)
		pkg.WriteApiFailure(w, "Missing required fields")
		return
	}

	filePath, err := handler.images.Upload(r.Context(), imageHeader.Filename, imageBytes)
	if err != nil {
		log.Errorf("add blog, image upload: %s", err)
		pkg.WriteApiFailure(w, "Image upload failed: "+err.Error())
		return
	}

	authorID, err := handler.resolveAuthor(r.Context())
	if err != nil {
		pkg.WriteApiFailure(w, "Unauthorized: author not found")
		return
	}

	newBlog := &Blog{
		Title:       newBlogReq.Title,
		SubTitle:    newBlogReq.SubTitle,
		Description: newBlogReq.Description,
		Category:    newBlogReq.Category,
		Image:       handler.images.TransformedURL(filePath),
		IsPublished: newBlogReq.IsPublished,
		AuthorID:    authorID,
	}
	if err := handler.repo.Add(r.Context(), newBlog); err != nil {
		log.Errorf("add blog failed: %s", err)
		pkg.WriteApiFailure(w, "Failed to add blog")
		return
	}

	log.Tracef("new blog %d: [%s] added", newBlog.ID, newBlog.Title)
	if handler.metricsManager != nil {
		handler.metricsManager.CounterBlogsCreated.Inc()
	}

	pkg.WriteApiSuccess(w, "Blog added successfully")
}

// resolveAuthor maps the caller identity to a users row id. Admin identities
// resolve through the materialized admin user (created at admin login).
func (handler *Handler) resolveAuthor(ctx context.Context) (int, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return 0, ErrAuthorNotResolved
	}

	switch identity.Actor {
	case auth.ActorUser:
		if identity.UserID == 0 {
			return 0, ErrAuthorNotResolved
		}
		return identity.UserID, nil
	case auth.ActorAdmin:
		authorID, err := handler.authors.AuthorIDByEmail(ctx, identity.Email)
		if err != nil {
			return 0, ErrAuthorNotResolved
		}
		return authorID, nil
	default:
		return 0, ErrAuthorNotResolved
	}
}

type blogsResponse struct {
	pkg.ApiResponse
	Blogs []*Blog `json:"blogs"`
}

func (handler *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	blogs, err := handler.repo.AllPublished(r.Context())
	if err != nil {
		log.Errorf("get all blogs: %s", err)
		pkg.WriteApiFailure(w, "Failed to get blogs")
		return
	}
	if blogs == nil {
		blogs = []*Blog{}
	}

	pkg.WriteApiResponse(w, blogsResponse{
		ApiResponse: pkg.ApiResponse{Success: true},
		Blogs:       blogs,
	})
}

type blogResponse struct {
	pkg.ApiResponse
	Blog *Blog `json:"blog"`
}

// handleGet serves a single blog by id and bumps its view counter. Publish
// state is deliberately not checked here: direct links to drafts keep working,
// only the listing endpoints filter to published posts.
func (handler *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["blogId"])
	if err != nil {
		pkg.WriteApiFailure(w, "Blog not found")
		return
	}

	b, err := handler.repo.GetByID(r.Context(), id)
	if err != nil {
		if !errors.Is(err, ErrBlogNotFound) {
			log.Errorf("get blog %d: %s", id, err)
		}
		pkg.WriteApiFailure(w, "Blog not found")
		return
	}

	if err := handler.repo.IncrementViews(r.Context(), id); err != nil {
		log.Errorf("increment views for blog %d: %s", id, err)
	} else {
		b.Views++
	}

	pkg.WriteApiResponse(w, blogResponse{
		ApiResponse: pkg.ApiResponse{Success: true},
		Blog:        b,
	})
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req blogIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteApiFailure(w, "Blog not found")
		return
	}

	b, err := handler.repo.GetByID(r.Context(), req.ID)
	if err != nil {
		pkg.WriteApiFailure(w, "Blog not found")
		return
	}

	identity, _ := auth.IdentityFromContext(r.Context())
	if err := auth.CanModifyBlog(identity, b.AuthorID); err != nil {
		pkg.WriteApiFailure(w, "You can only delete your own blogs")
		return
	}

	if err := handler.repo.Delete(r.Context(), req.ID); err != nil {
		log.Errorf("delete blog %d: %s", req.ID, err)
		pkg.WriteApiFailure(w, "Failed to delete blog")
		return
	}

	pkg.WriteApiSuccess(w, "Blog deleted successfully")
}

func (handler *Handler) handleTogglePublish(w http.ResponseWriter, r *http.Request) {
	var req blogIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteApiFailure(w, "Blog not found")
		return
	}

	b, err := handler.repo.GetByID(r.Context(), req.ID)
	if err != nil {
		pkg.WriteApiFailure(w, "Blog not found")
		return
	}

	identity, _ := auth.IdentityFromContext(r.Context())
	if err := auth.CanModifyBlog(identity, b.AuthorID); err != nil {
		pkg.WriteApiFailure(w, "You can only update your own blogs")
		return
	}

	if _, err := handler.repo.TogglePublish(r.Context(), req.ID); err != nil {
		log.Errorf("toggle publish for blog %d: %s", req.ID, err)
		pkg.WriteApiFailure(w, "Failed to update blog")
		return
	}

	pkg.WriteApiSuccess(w, "Blog status updated")
}

type likeResponse struct {
	pkg.ApiResponse
	Likes   int  `json:"likes"`
	IsLiked bool `json:"isLiked"`
}

func (handler *Handler) handleLike(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["blogId"])
	if err != nil {
		pkg.WriteApiFailure(w, "Blog not found")
		return
	}

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity.Actor != auth.ActorUser || identity.UserID == 0 {
		pkg.WriteApiFailure(w, "Unauthorized")
		return
	}

	liked, likesCount, err := handler.repo.ToggleLike(r.Context(), id, identity.UserID)
	if err != nil {
		if errors.Is(err, ErrBlogNotFound) {
			pkg.WriteApiFailure(w, "Blog not found")
			return
		}
		log.Errorf("toggle like for blog %d: %s", id, err)
		pkg.WriteApiFailure(w, "Failed to like blog")
		return
	}

	message := "Blog unliked"
	if liked {
		message = "Blog liked"
	}
	pkg.WriteApiResponse(w, likeResponse{
		ApiResponse: pkg.ApiResponse{Success: true, Message: message},
		Likes:       likesCount,
		IsLiked:     liked,
	})
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	pkg.ApiResponse
	Content string `json:"content"`
}

// handleGenerate proxies the prompt to the AI text generation service.
// Failures are reported to the caller right away, there are no retries.
func (handler *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		pkg.WriteApiFailure(w, "Missing required fields")
		return
	}

	content, err := handler.generator.Generate(r.Context(), req.Prompt)
	if err != nil {
		log.Errorf("content generation: %s", err)
		pkg.WriteApiFailure(w, err.Error())
		return
	}

	pkg.WriteApiResponse(w, generateResponse{
		ApiResponse: pkg.ApiResponse{Success: true},
		Content:     content,
	})
}

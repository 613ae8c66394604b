package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/bloghaven/bloghaven/internal/auth"
	"github.com/bloghaven/bloghaven/internal/dashboard"
	"github.com/bloghaven/bloghaven/internal/telemetry/metrics"
	"github.com/bloghaven/bloghaven/pkg"
)

type userRepo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id int, name, bio string) (*User, error)
}

type tokenIssuer interface {
	IssueUser(userID int, email string) (string, error)
}

type dashboardProvider interface {
	ForAuthor(ctx context.Context, authorID int) (*dashboard.AuthorDashboard, error)
}

type Handler struct {
	repo           userRepo
	tokens         tokenIssuer
	dashboards     dashboardProvider
	metricsManager *metrics.Manager
}

func NewHandler(
	repo userRepo,
	tokens tokenIssuer,
	dashboards dashboardProvider,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		repo:           repo,
		tokens:         tokens,
		dashboards:     dashboards,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router, loginRouter *mux.Router) {
	loginRouter.HandleFunc("/signup", handler.handleSignup).Methods("POST", "OPTIONS").Name("signup")
	loginRouter.HandleFunc("/login", handler.handleLogin).Methods("POST", "OPTIONS").Name("login")
	router.HandleFunc("/profile", handler.handleProfile).Methods("GET", "OPTIONS").Name("profile")
	router.HandleFunc("/profile", handler.handleProfileUpdate).Methods("PUT", "OPTIONS").Name("profile-update")
	router.HandleFunc("/dashboard", handler.handleDashboard).Methods("GET", "OPTIONS").Name("user-dashboard")
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	pkg.ApiResponse
	Token string `json:"token"`
	User  Public `json:"user"`
}

func (handler *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteApiFailure(w, "Missing required fields")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		pkg.WriteApiFailure(w, "Missing required fields")
		return
	}

	passwordHash, err := pkg.HashPassword(req.Password)
	if err != nil {
		log.Errorf("signup, hash password: %s", err)
		pkg.WriteApiFailure(w, "Signup failed")
		return
	}

	newUser := &User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
	}
	if err := handler.repo.Create(r.Context(), newUser); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			pkg.WriteApiFailure(w, "User already exists")
			return
		}
		log.Errorf("signup, create user: %s", err)
		pkg.WriteApiFailure(w, "Signup failed")
		return
	}

	token, err := handler.tokens.IssueUser(newUser.ID, newUser.Email)
	if err != nil {
		log.Errorf("signup, issue token for user %d: %s", newUser.ID, err)
		pkg.WriteApiFailure(w, "Signup failed")
		return
	}

	log.Tracef("new user %d [%s] signed up", newUser.ID, newUser.Email)
	if handler.metricsManager != nil {
		handler.metricsManager.CounterSignups.Inc()
	}

	pkg.WriteApiResponse(w, authResponse{
		ApiResponse: pkg.ApiResponse{Success: true},
		Token:       token,
		User:        newUser.Public(),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteApiFailure(w, "Invalid Credentials")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		pkg.WriteApiFailure(w, "Invalid Credentials")
		return
	}

	u, err := handler.repo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Errorf("login, get user: %s", err)
		}
		// same response as wrong password, no email enumeration
		pkg.WriteApiFailure(w, "Invalid Credentials")
		return
	}

	if !pkg.CheckPasswordHash(req.Password, u.PasswordHash) {
		pkg.WriteApiFailure(w, "Invalid Credentials")
		return
	}

	token, err := handler.tokens.IssueUser(u.ID, u.Email)
	if err != nil {
		log.Errorf("login, issue token for user %d: %s", u.ID, err)
		pkg.WriteApiFailure(w, "Login failed")
		return
	}

	log.Tracef("user %d [%s] logged in", u.ID, u.Email)
	if handler.metricsManager != nil {
		handler.metricsManager.CounterLogins.Inc()
	}

	pkg.WriteApiResponse(w, authResponse{
		ApiResponse: pkg.ApiResponse{Success: true},
		Token:       token,
		User:        u.Public(),
	})
}

type profileResponse struct {
	pkg.ApiResponse
	User Public `json:"user"`
}

func (handler *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity.Actor != auth.ActorUser || identity.UserID == 0 {
		pkg.WriteApiFailure(w, "Unauthorized")
		return
	}

	u, err := handler.repo.GetByID(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteApiFailure(w, "User not found")
			return
		}
		log.Errorf("get profile for user %d: %s", identity.UserID, err)
		pkg.WriteApiFailure(w, "Failed to get profile")
		return
	}

	pkg.WriteApiResponse(w, profileResponse{
		ApiResponse: pkg.ApiResponse{Success: true},
		User:        u.Public(),
	})
}

type profileUpdateRequest struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

func (handler *Handler) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity.Actor != auth.ActorUser || identity.UserID == 0 {
		pkg.WriteApiFailure(w, "Unauthorized")
		return
	}

	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteApiFailure(w, "Missing required fields")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		pkg.WriteApiFailure(w, "Missing required fields")
		return
	}

	u, err := handler.repo.UpdateProfile(r.Context(), identity.UserID, req.Name, req.Bio)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteApiFailure(w, "User not found")
			return
		}
		log.Errorf("update profile for user %d: %s", identity.UserID, err)
		pkg.WriteApiFailure(w, "Failed to update profile")
		return
	}

	pkg.WriteApiResponse(w, profileResponse{
		ApiResponse: pkg.ApiResponse{Success: true, Message: "Profile updated successfully"},
		User:        u.Public(),
	})
}

type dashboardResponse struct {
	pkg.ApiResponse
	Dashboard *dashboard.AuthorDashboard `json:"dashboard"`
}

func (handler *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity.Actor != auth.ActorUser || identity.UserID == 0 {
		pkg.WriteApiFailure(w, "Unauthorized")
		return
	}

	d, err := handler.dashboards.ForAuthor(r.Context(), identity.UserID)
	if err != nil {
		log.Errorf("dashboard for user %d: %s", identity.UserID, err)
		pkg.WriteApiFailure(w, "Failed to get dashboard")
		return
	}

	pkg.WriteApiResponse(w, dashboardResponse{
		ApiResponse: pkg.ApiResponse{Success: true},
		Dashboard:   d,
	})
}

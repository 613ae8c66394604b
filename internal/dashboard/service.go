package dashboard

import (
	"context"
	"fmt"

	"github.com/bloghaven/bloghaven/internal/blog"
	"github.com/bloghaven/bloghaven/internal/telemetry/tracing"
)

const recentBlogsLimit = 5

type blogStatsRepo interface {
	AllByAuthor(ctx context.Context, authorID int) ([]*blog.Blog, error)
	CountByAuthor(ctx context.Context, authorID int) (int, error)
	CountPublishedByAuthor(ctx context.Context, authorID int) (int, error)
	SumViewsByAuthor(ctx context.Context, authorID int) (int, error)
	Count(ctx context.Context) (int, error)
	CountDrafts(ctx context.Context) (int, error)
	Recent(ctx context.Context, limit int) ([]*blog.Blog, error)
}

type commentCounter interface {
	Count(ctx context.Context) (int, error)
}

// Service aggregates the dashboard numbers for authors and for the admin
// panel. It holds no state of its own, everything comes from the repos.
type Service struct {
	blogs    blogStatsRepo
	comments commentCounter
}

func NewService(blogs blogStatsRepo, comments commentCounter) *Service {
	return &Service{
		blogs:    blogs,
		comments: comments,
	}
}

type AuthorStats struct {
	TotalBlogs     int `json:"totalBlogs"`
	PublishedBlogs int `json:"publishedBlogs"`
	DraftBlogs     int `json:"draftBlogs"`
	TotalViews     int `json:"totalViews"`
}

type AuthorDashboard struct {
	Blogs []*blog.Blog `json:"blogs"`
	Stats AuthorStats  `json:"stats"`
}

// ForAuthor builds the author dashboard: all of the author's blogs (drafts
// included) plus the aggregate counters.
func (s *Service) ForAuthor(ctx context.Context, authorID int) (*AuthorDashboard, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "dashboard.ForAuthor")
	defer span.End()

	blogs, err := s.blogs.AllByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("get author blogs: %w", err)
	}
	if blogs == nil {
		blogs = []*blog.Blog{}
	}

	total, err := s.blogs.CountByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("count author blogs: %w", err)
	}
	published, err := s.blogs.CountPublishedByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("count published blogs: %w", err)
	}
	views, err := s.blogs.SumViewsByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("sum author views: %w", err)
	}

	return &AuthorDashboard{
		Blogs: blogs,
		Stats: AuthorStats{
			TotalBlogs:     total,
			PublishedBlogs: published,
			DraftBlogs:     total - published,
			TotalViews:     views,
		},
	}, nil
}

type AdminDashboard struct {
	Blogs       int          `json:"blogs"`
	Comments    int          `json:"comments"`
	Drafts      int          `json:"drafts"`
	RecentBlogs []*blog.Blog `json:"recentBlogs"`
}

// ForAdmin builds the platform-wide dashboard shown in the admin panel.
func (s *Service) ForAdmin(ctx context.Context) (*AdminDashboard, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "dashboard.ForAdmin")
	defer span.End()

	blogsCount, err := s.blogs.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count blogs: %w", err)
	}
	commentsCount, err := s.comments.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	draftsCount, err := s.blogs.CountDrafts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count drafts: %w", err)
	}
	recent, err := s.blogs.Recent(ctx, recentBlogsLimit)
	if err != nil {
		return nil, fmt.Errorf("get recent blogs: %w", err)
	}
	if recent == nil {
		recent = []*blog.Blog{}
	}

	return &AdminDashboard{
		Blogs:       blogsCount,
		Comments:    commentsCount,
		Drafts:      draftsCount,
		RecentBlogs: recent,
	}, nil
}

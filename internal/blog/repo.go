package blog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bloghaven/bloghaven/internal/telemetry/tracing"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

const blogSelect = `
	SELECT
		b.id, b.title, b.sub_title, b.description, b.category, b.image,
		b.is_published, b.views, b.author_id, b.created_at,
		u.name, u.avatar, u.bio,
		ARRAY(SELECT bl.user_id FROM blog_likes bl WHERE bl.blog_id = b.id)::int[]
	FROM blogs b
	JOIN users u ON u.id = b.author_id
`

func (r *Repo) Add(ctx context.Context, b *Blog) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.Add")
	defer span.End()

	if b.Title == "" || b.Description == "" || b.Category == "" {
		return ErrMissingBlogFields
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}

	return r.db.QueryRow(
		ctx,
		`INSERT INTO blogs
			(title, sub_title, description, category, image, is_published, views, author_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8) RETURNING id;`,
		b.Title, b.SubTitle, b.Description, b.Category, b.Image,
		b.IsPublished, b.AuthorID, b.CreatedAt,
	).Scan(&b.ID)
}

func (r *Repo) GetByID(ctx context.Context, id int) (*Blog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.GetByID")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	rows, err := r.db.Query(ctx, blogSelect+`WHERE b.id = $1;`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs, err := rows2blogs(rows)
	if err != nil {
		return nil, err
	}
	if len(blogs) == 0 {
		return nil, ErrBlogNotFound
	}
	return blogs[0], nil
}

func (r *Repo) AllPublished(ctx context.Context) ([]*Blog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.AllPublished")
	defer span.End()

	rows, err := r.db.Query(ctx, blogSelect+`WHERE b.is_published ORDER BY b.created_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows2blogs(rows)
}

func (r *Repo) All(ctx context.Context) ([]*Blog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.All")
	defer span.End()

	rows, err := r.db.Query(ctx, blogSelect+`ORDER BY b.created_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows2blogs(rows)
}

func (r *Repo) AllByAuthor(ctx context.Context, authorID int) ([]*Blog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.AllByAuthor")
	span.SetAttributes(attribute.Int("authorId", authorID))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		blogSelect+`WHERE b.author_id = $1 ORDER BY b.created_at DESC;`,
		authorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows2blogs(rows)
}

func (r *Repo) Recent(ctx context.Context, limit int) ([]*Blog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.Recent")
	span.SetAttributes(attribute.Int("limit", limit))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		blogSelect+`ORDER BY b.created_at DESC LIMIT $1;`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows2blogs(rows)
}

// Delete removes the blog together with its comments and likes, in one
// transaction, so no orphaned comments survive the blog.
func (r *Repo) Delete(ctx context.Context, id int) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.Delete")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE blog_id = $1`, id); err != nil {
		return fmt.Errorf("delete blog comments: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM blog_likes WHERE blog_id = $1`, id); err != nil {
		return fmt.Errorf("delete blog likes: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM blogs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBlogNotFound
	}

	return tx.Commit(ctx)
}

// TogglePublish flips the publish flag and returns the new state.
func (r *Repo) TogglePublish(ctx context.Context, id int) (bool, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.TogglePublish")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	var isPublished bool
	err := r.db.QueryRow(
		ctx,
		`UPDATE blogs SET is_published = NOT is_published WHERE id = $1 RETURNING is_published`,
		id,
	).Scan(&isPublished)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrBlogNotFound
	}
	if err != nil {
		return false, err
	}
	return isPublished, nil
}

func (r *Repo) IncrementViews(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `UPDATE blogs SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBlogNotFound
	}
	return nil
}

// ToggleLike adds the user to the blog's like set, or removes them when
// already present. Returns the resulting state and like count.
func (r *Repo) ToggleLike(ctx context.Context, blogID, userID int) (liked bool, likesCount int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.ToggleLike")
	span.SetAttributes(attribute.Int("blogId", blogID))
	span.SetAttributes(attribute.Int("userId", userID))
	defer span.End()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(
		ctx, `SELECT EXISTS(SELECT 1 FROM blogs WHERE id = $1)`, blogID,
	).Scan(&exists); err != nil {
		return false, 0, err
	}
	if !exists {
		return false, 0, ErrBlogNotFound
	}

	tag, err := tx.Exec(
		ctx,
		`DELETE FROM blog_likes WHERE blog_id = $1 AND user_id = $2`,
		blogID, userID,
	)
	if err != nil {
		return false, 0, err
	}

	if tag.RowsAffected() == 0 {
		// was not liked yet
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO blog_likes (blog_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			blogID, userID,
		); err != nil {
			return false, 0, err
		}
		liked = true
	}

	if err := tx.QueryRow(
		ctx, `SELECT COUNT(*) FROM blog_likes WHERE blog_id = $1`, blogID,
	).Scan(&likesCount); err != nil {
		return false, 0, err
	}

	return liked, likesCount, tx.Commit(ctx)
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM blogs`)
}

func (r *Repo) CountDrafts(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM blogs WHERE NOT is_published`)
}

func (r *Repo) CountByAuthor(ctx context.Context, authorID int) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM blogs WHERE author_id = $1`, authorID)
}

func (r *Repo) CountPublishedByAuthor(ctx context.Context, authorID int) (int, error) {
	return r.count(
		ctx,
		`SELECT COUNT(*) FROM blogs WHERE author_id = $1 AND is_published`,
		authorID,
	)
}

func (r *Repo) SumViewsByAuthor(ctx context.Context, authorID int) (int, error) {
	return r.count(
		ctx,
		`SELECT COALESCE(SUM(views), 0) FROM blogs WHERE author_id = $1`,
		authorID,
	)
}

func (r *Repo) count(ctx context.Context, query string, args ...any) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return -1, err
	}
	return count, nil
}

func rows2blogs(rows pgx.Rows) ([]*Blog, error) {
	var blogs []*Blog
	for rows.Next() {
		var b Blog
		var author Author
		if err := rows.Scan(
			&b.ID, &b.Title, &b.SubTitle, &b.Description, &b.Category, &b.Image,
			&b.IsPublished, &b.Views, &b.AuthorID, &b.CreatedAt,
			&author.Name, &author.Avatar, &author.Bio,
			&b.Likes,
		); err != nil {
			return nil, err
		}
		author.ID = b.AuthorID
		b.Author = &author
		if b.Likes == nil {
			b.Likes = []int{}
		}
		blogs = append(blogs, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return blogs, nil
}

package comment

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bloghaven/bloghaven/internal/telemetry/tracing"
	"github.com/bloghaven/bloghaven/pkg"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, c *Comment) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "commentRepo.Add")
	span.SetAttributes(attribute.Int("blogId", c.BlogID))
	defer span.End()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	err := r.db.QueryRow(
		ctx,
		`INSERT INTO comments (blog_id, name, content, email, author_id, is_approved, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id;`,
		c.BlogID, c.Name, c.Content, c.Email, c.AuthorID, c.IsApproved, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return ErrBlogNotFound
		}
		return err
	}

	return nil
}

// ApprovedForBlog returns approved comments for the blog, newest first.
func (r *Repo) ApprovedForBlog(ctx context.Context, blogID int) ([]*Comment, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "commentRepo.ApprovedForBlog")
	span.SetAttributes(attribute.Int("blogId", blogID))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, blog_id, name, content, email, author_id, is_approved, created_at
			FROM comments WHERE blog_id = $1 AND is_approved
			ORDER BY created_at DESC;`,
		blogID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows2comments(rows)
}

const moderationSelect = `
	SELECT
		c.id, c.blog_id, c.name, c.content, c.email, c.author_id,
		c.is_approved, c.created_at,
		b.title, b.author_id
	FROM comments c
	JOIN blogs b ON b.id = c.blog_id
`

// ListForAuthor returns all comments on the author's blogs, for moderation.
func (r *Repo) ListForAuthor(ctx context.Context, authorID int) ([]*ModerationEntry, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "commentRepo.ListForAuthor")
	span.SetAttributes(attribute.Int("authorId", authorID))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		moderationSelect+`WHERE b.author_id = $1 ORDER BY c.created_at DESC;`,
		authorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows2moderationEntries(rows)
}

// ListAll returns every comment on the platform, for the admin panel.
func (r *Repo) ListAll(ctx context.Context) ([]*ModerationEntry, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "commentRepo.ListAll")
	defer span.End()

	rows, err := r.db.Query(ctx, moderationSelect+`ORDER BY c.created_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows2moderationEntries(rows)
}

// GetWithBlog fetches a single comment together with its parent blog, which
// carries the author id the moderation checks run against.
func (r *Repo) GetWithBlog(ctx context.Context, id int) (*ModerationEntry, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "commentRepo.GetWithBlog")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	var entry ModerationEntry
	err := r.db.QueryRow(ctx, moderationSelect+`WHERE c.id = $1;`, id).Scan(
		&entry.ID, &entry.BlogID, &entry.Name, &entry.Content,
		&entry.Email, &entry.AuthorID,
		&entry.IsApproved, &entry.CreatedAt,
		&entry.BlogTitle, &entry.BlogAuthorID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *Repo) Approve(ctx context.Context, id int) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "commentRepo.Approve")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	tag, err := r.db.Exec(ctx, `UPDATE comments SET is_approved = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCommentNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "commentRepo.Delete")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// StatsForAuthor aggregates the moderation counters over the author's blogs
// in a single query.
func (r *Repo) StatsForAuthor(ctx context.Context, authorID int) (Stats, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "commentRepo.StatsForAuthor")
	span.SetAttributes(attribute.Int("authorId", authorID))
	defer span.End()

	var stats Stats
	err := r.db.QueryRow(
		ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE c.is_approved),
			COUNT(*) FILTER (WHERE NOT c.is_approved)
		FROM comments c
		JOIN blogs b ON b.id = c.blog_id
		WHERE b.author_id = $1;`,
		authorID,
	).Scan(&stats.Total, &stats.Approved, &stats.Pending)
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM comments`).Scan(&count); err != nil {
		return -1, err
	}
	return count, nil
}

func rows2comments(rows pgx.Rows) ([]*Comment, error) {
	var comments []*Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(
			&c.ID, &c.BlogID, &c.Name, &c.Content, &c.Email, &c.AuthorID,
			&c.IsApproved, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return comments, nil
}

func rows2moderationEntries(rows pgx.Rows) ([]*ModerationEntry, error) {
	var entries []*ModerationEntry
	for rows.Next() {
		var entry ModerationEntry
		if err := rows.Scan(
			&entry.ID, &entry.BlogID, &entry.Name, &entry.Content,
			&entry.Email, &entry.AuthorID,
			&entry.IsApproved, &entry.CreatedAt,
			&entry.BlogTitle, &entry.BlogAuthorID,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

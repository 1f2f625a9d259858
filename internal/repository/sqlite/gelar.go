package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/jogjaantibully/kanal/internal/apperror"
	"github.com/jogjaantibully/kanal/internal/model"
	"github.com/jogjaantibully/kanal/internal/repository"
)

var _ repository.GelarPostRepository = (*GelarPostDB)(nil)

// GelarPostDB is the "gelarPosts" collection.
type GelarPostDB struct {
	conn *sql.DB
}

func (g *GelarPostDB) Create(ctx context.Context, post *model.GelarPost) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now()

	_, err := g.conn.ExecContext(ctx,
		`INSERT INTO gelar_posts (id, title, content, category, image_url, likes, approved, author_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.Title,
		post.Content,
		post.Category,
		post.ImageURL,
		post.Likes,
		post.Approved,
		post.AuthorID,
		post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating gelar post: %w", err)
	}
	return nil
}

func (g *GelarPostDB) GetByID(ctx context.Context, id string) (*model.GelarPost, error) {
	var p model.GelarPost

	err := g.conn.QueryRowContext(ctx,
		`SELECT id, title, content, category, image_url, likes, approved, author_id, created_at
		 FROM gelar_posts WHERE id = ?`,
		id,
	).Scan(
		&p.ID, &p.Title, &p.Content, &p.Category, &p.ImageURL,
		&p.Likes, &p.Approved, &p.AuthorID, &p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("gelar post", id)
		}
		return nil, fmt.Errorf("sqlite: getting gelar post %s: %w", id, err)
	}
	return &p, nil
}

// ListApproved returns only approved posts, newest first. Unapproved
// submissions never leave the database through this path.
func (g *GelarPostDB) ListApproved(ctx context.Context, opts repository.ListOptions) ([]model.GelarPost, error) {
	limit, offset := clampList(opts)

	rows, err := g.conn.QueryContext(ctx,
		`SELECT id, title, content, category, image_url, likes, approved, author_id, created_at
		 FROM gelar_posts
		 WHERE approved = 1
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing gelar posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.GelarPost, 0, limit)
	for rows.Next() {
		var p model.GelarPost
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Content, &p.Category, &p.ImageURL,
			&p.Likes, &p.Approved, &p.AuthorID, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning gelar post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating gelar posts: %w", err)
	}
	return posts, nil
}

func (g *GelarPostDB) SetApproved(ctx context.Context, id string, approved bool) error {
	result, err := g.conn.ExecContext(ctx,
		`UPDATE gelar_posts SET approved = ? WHERE id = ?`,
		approved,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: approving gelar post %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("gelar post", id)
	}
	return nil
}

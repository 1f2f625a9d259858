package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/jogjaantibully/kanal/internal/apperror"
	"github.com/jogjaantibully/kanal/internal/model"
	"github.com/jogjaantibully/kanal/internal/repository"
)

var _ repository.GelarPostRepository = (*GelarPostDB)(nil)

type GelarPostDB struct {
	conn *sql.DB
}

const gelarColumns = `id, title, content, category, image_url, likes, approved, author_id, created_at`

func scanGelar(row interface{ Scan(...any) error }, p *model.GelarPost) error {
	return row.Scan(&p.ID, &p.Title, &p.Content, &p.Category, &p.ImageURL,
		&p.Likes, &p.Approved, &p.AuthorID, &p.CreatedAt)
}

func (g *GelarPostDB) Create(ctx context.Context, post *model.GelarPost) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now()

	_, err := g.conn.ExecContext(ctx,
		`INSERT INTO gelar_posts (`+gelarColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		post.ID, post.Title, post.Content, post.Category, post.ImageURL,
		post.Likes, post.Approved, post.AuthorID, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: creating gelar post: %w", err)
	}
	return nil
}

func (g *GelarPostDB) GetByID(ctx context.Context, id string) (*model.GelarPost, error) {
	var p model.GelarPost
	row := g.conn.QueryRowContext(ctx, `SELECT `+gelarColumns+` FROM gelar_posts WHERE id = $1`, id)
	if err := scanGelar(row, &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("gelar post", id)
		}
		return nil, fmt.Errorf("postgres: getting gelar post %s: %w", id, err)
	}
	return &p, nil
}

func (g *GelarPostDB) ListApproved(ctx context.Context, opts repository.ListOptions) ([]model.GelarPost, error) {
	limit, offset := clampList(opts)

	rows, err := g.conn.QueryContext(ctx,
		`SELECT `+gelarColumns+`
		 FROM gelar_posts
		 WHERE approved
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing gelar posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.GelarPost, 0, limit)
	for rows.Next() {
		var p model.GelarPost
		if err := scanGelar(rows, &p); err != nil {
			return nil, fmt.Errorf("postgres: scanning gelar post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating gelar posts: %w", err)
	}
	return posts, nil
}

func (g *GelarPostDB) SetApproved(ctx context.Context, id string, approved bool) error {
	result, err := g.conn.ExecContext(ctx,
		`UPDATE gelar_posts SET approved = $1 WHERE id = $2`, approved, id)
	if err != nil {
		return fmt.Errorf("postgres: approving gelar post %s: %w", id, err)
	}
	return expectOneRow(result, "gelar post", id)
}

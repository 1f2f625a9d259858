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

var _ repository.QuoteRepository = (*QuoteDB)(nil)

type QuoteDB struct {
	conn *sql.DB
}

func (q *QuoteDB) Create(ctx context.Context, quote *model.Quote) error {
	quote.ID = xid.New().String()
	now := time.Now()
	quote.CreatedAt = now
	quote.UpdatedAt = now

	_, err := q.conn.ExecContext(ctx,
		`INSERT INTO quotes (id, caption, image, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		quote.ID, quote.Caption, quote.Image, quote.CreatedAt, quote.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: creating quote: %w", err)
	}
	return nil
}

func (q *QuoteDB) GetByID(ctx context.Context, id string) (*model.Quote, error) {
	var quote model.Quote

	err := q.conn.QueryRowContext(ctx,
		`SELECT id, caption, image, created_at, updated_at FROM quotes WHERE id = $1`,
		id,
	).Scan(&quote.ID, &quote.Caption, &quote.Image, &quote.CreatedAt, &quote.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("quote", id)
		}
		return nil, fmt.Errorf("postgres: getting quote %s: %w", id, err)
	}
	return &quote, nil
}

func (q *QuoteDB) List(ctx context.Context, opts repository.ListOptions) ([]model.Quote, error) {
	limit, offset := clampList(opts)

	rows, err := q.conn.QueryContext(ctx,
		`SELECT id, caption, image, created_at, updated_at
		 FROM quotes
		 ORDER BY created_at ASC, id ASC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]model.Quote, 0, limit)
	for rows.Next() {
		var quote model.Quote
		if err := rows.Scan(&quote.ID, &quote.Caption, &quote.Image, &quote.CreatedAt, &quote.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning quote row: %w", err)
		}
		quotes = append(quotes, quote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating quotes: %w", err)
	}
	return quotes, nil
}

func (q *QuoteDB) Update(ctx context.Context, quote *model.Quote) error {
	quote.UpdatedAt = time.Now()

	result, err := q.conn.ExecContext(ctx,
		`UPDATE quotes SET caption = $1, image = $2, updated_at = $3 WHERE id = $4`,
		quote.Caption, quote.Image, quote.UpdatedAt, quote.ID,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating quote %s: %w", quote.ID, err)
	}
	return expectOneRow(result, "quote", quote.ID)
}

func (q *QuoteDB) Delete(ctx context.Context, id string) error {
	result, err := q.conn.ExecContext(ctx, `DELETE FROM quotes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting quote %s: %w", id, err)
	}
	return expectOneRow(result, "quote", id)
}

// expectOneRow turns "nothing matched" into apperror.ErrNotFound.
func expectOneRow(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

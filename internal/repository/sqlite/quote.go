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

var _ repository.QuoteRepository = (*QuoteDB)(nil)

// QuoteDB is the "quotes" collection.
type QuoteDB struct {
	conn *sql.DB
}

// Create inserts a new quote. The ID and timestamps are filled in on the
// caller's struct.
//
// ID GENERATION WITH xid:
// 20 chars, URL-safe and sortable by creation time, e.g. "cv37rs3pp9olc6atsptg".
func (q *QuoteDB) Create(ctx context.Context, quote *model.Quote) error {
	quote.ID = xid.New().String()
	now := time.Now()
	quote.CreatedAt = now
	quote.UpdatedAt = now

	_, err := q.conn.ExecContext(ctx,
		`INSERT INTO quotes (id, caption, image, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		quote.ID,
		quote.Caption,
		quote.Image,
		quote.CreatedAt,
		quote.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating quote: %w", err)
	}
	return nil
}

// GetByID retrieves a single quote. Returns apperror.ErrNotFound if missing.
func (q *QuoteDB) GetByID(ctx context.Context, id string) (*model.Quote, error) {
	var quote model.Quote

	err := q.conn.QueryRowContext(ctx,
		`SELECT id, caption, image, created_at, updated_at
		 FROM quotes
		 WHERE id = ?`,
		id,
	).Scan(
		&quote.ID,
		&quote.Caption,
		&quote.Image,
		&quote.CreatedAt,
		&quote.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("quote", id)
		}
		return nil, fmt.Errorf("sqlite: getting quote %s: %w", id, err)
	}

	return &quote, nil
}

// List returns quotes oldest first, the order the dashboard grid shows them.
func (q *QuoteDB) List(ctx context.Context, opts repository.ListOptions) ([]model.Quote, error) {
	limit, offset := clampList(opts)

	rows, err := q.conn.QueryContext(ctx,
		`SELECT id, caption, image, created_at, updated_at
		 FROM quotes
		 ORDER BY created_at ASC, id ASC
		 LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing quotes: %w", err)
	}
	// CRITICAL: always close rows when done!
	defer rows.Close()

	quotes := make([]model.Quote, 0, limit)
	for rows.Next() {
		var quote model.Quote
		if err := rows.Scan(
			&quote.ID, &quote.Caption, &quote.Image,
			&quote.CreatedAt, &quote.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning quote row: %w", err)
		}
		quotes = append(quotes, quote)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating quotes: %w", err)
	}

	return quotes, nil
}

// Update rewrites caption and image. RowsAffected == 0 means the quote is gone.
func (q *QuoteDB) Update(ctx context.Context, quote *model.Quote) error {
	quote.UpdatedAt = time.Now()

	result, err := q.conn.ExecContext(ctx,
		`UPDATE quotes
		 SET caption = ?, image = ?, updated_at = ?
		 WHERE id = ?`,
		quote.Caption,
		quote.Image,
		quote.UpdatedAt,
		quote.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating quote %s: %w", quote.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("quote", quote.ID)
	}

	return nil
}

// Delete removes a quote by ID.
func (q *QuoteDB) Delete(ctx context.Context, id string) error {
	result, err := q.conn.ExecContext(ctx,
		`DELETE FROM quotes WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting quote %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("quote", id)
	}

	return nil
}

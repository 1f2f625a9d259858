package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jogjaantibully/kanal/internal/apperror"
	"github.com/jogjaantibully/kanal/internal/model"
	"github.com/jogjaantibully/kanal/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the "users" collection, keyed by the provider's subject id.
type UserDB struct {
	conn *sql.DB
}

// GetProfile retrieves a profile by subject id.
// Returns apperror.ErrNotFound if no profile exists with that id.
func (u *UserDB) GetProfile(ctx context.Context, id string) (*model.UserProfile, error) {
	var (
		p        model.UserProfile
		role     string
		verified sql.NullBool
	)

	err := u.conn.QueryRowContext(ctx,
		`SELECT id, name, email, profile_picture, role, email_verified, created_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.ProfilePicture,
		&role,
		&verified,
		&p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	p.Role = model.Role(role)
	if verified.Valid {
		v := verified.Bool
		p.EmailVerified = &v
	}
	return &p, nil
}

// SetProfile writes the whole profile document.
//
// INSERT OR REPLACE keyed on the primary key: the first write creates the
// row, any later write for the same id replaces it. Two concurrent writers
// therefore leave exactly one row behind, holding whichever write landed last.
func (u *UserDB) SetProfile(ctx context.Context, profile *model.UserProfile) error {
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}

	var verified sql.NullBool
	if profile.EmailVerified != nil {
		verified = sql.NullBool{Bool: *profile.EmailVerified, Valid: true}
	}

	_, err := u.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO users (id, name, email, profile_picture, role, email_verified, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		profile.ID,
		profile.Name,
		profile.Email,
		profile.ProfilePicture,
		string(profile.Role),
		verified,
		profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting user %s: %w", profile.ID, err)
	}
	return nil
}

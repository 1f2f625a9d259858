package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jogjaantibully/kanal/internal/apperror"
	"github.com/jogjaantibully/kanal/internal/model"
	"github.com/jogjaantibully/kanal/internal/repository"
)

var _ repository.UserRepository = (*UserDB)(nil)

type UserDB struct {
	conn *sql.DB
}

func (u *UserDB) GetProfile(ctx context.Context, id string) (*model.UserProfile, error) {
	var (
		p        model.UserProfile
		role     string
		verified sql.NullBool
	)

	err := u.conn.QueryRowContext(ctx,
		`SELECT id, name, email, profile_picture, role, email_verified, created_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Email, &p.ProfilePicture, &role, &verified, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("postgres: getting user %s: %w", id, err)
	}

	p.Role = model.Role(role)
	if verified.Valid {
		v := verified.Bool
		p.EmailVerified = &v
	}
	return &p, nil
}

// SetProfile replaces the whole row for profile.ID, creating it if needed.
func (u *UserDB) SetProfile(ctx context.Context, profile *model.UserProfile) error {
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}

	var verified sql.NullBool
	if profile.EmailVerified != nil {
		verified = sql.NullBool{Bool: *profile.EmailVerified, Valid: true}
	}

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, profile_picture, role, email_verified, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		     name = EXCLUDED.name,
		     email = EXCLUDED.email,
		     profile_picture = EXCLUDED.profile_picture,
		     role = EXCLUDED.role,
		     email_verified = EXCLUDED.email_verified,
		     created_at = EXCLUDED.created_at`,
		profile.ID,
		profile.Name,
		profile.Email,
		profile.ProfilePicture,
		string(profile.Role),
		verified,
		profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: setting user %s: %w", profile.ID, err)
	}
	return nil
}

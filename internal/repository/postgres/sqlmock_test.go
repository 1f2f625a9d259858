package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/jogjaantibully/kanal/internal/apperror"
	"github.com/jogjaantibully/kanal/internal/model"
	"github.com/jogjaantibully/kanal/internal/repository"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var userColumns = []string{"id", "name", "email", "profile_picture", "role", "email_verified", "created_at"}

func TestUserDB_GetProfile(t *testing.T) {
	db, mock := newMockDB(t)
	users := &UserDB{conn: db}
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, name, email, profile_picture, role, email_verified, created_at\s+FROM users WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u1", "Ayu", "ayu@example.com", "/ayu.png", "admin", true, created))

	p, err := users.GetProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.Name != "Ayu" || p.Role != model.RoleAdmin || !p.CreatedAt.Equal(created) {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if p.EmailVerified == nil || !*p.EmailVerified {
		t.Fatalf("EmailVerified = %v, want true", p.EmailVerified)
	}
}

func TestUserDB_GetProfile_NullEmailVerified(t *testing.T) {
	db, mock := newMockDB(t)
	users := &UserDB{conn: db}

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("u2").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u2", "Budi", "budi@example.com", model.DefaultProfilePicture, "user", nil, time.Now()))

	p, err := users.GetProfile(context.Background(), "u2")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.EmailVerified != nil {
		t.Fatalf("EmailVerified = %v, want nil", *p.EmailVerified)
	}
}

func TestUserDB_GetProfile_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	users := &UserDB{conn: db}

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := users.GetProfile(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUserDB_GetProfile_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	users := &UserDB{conn: db}
	boom := errors.New("connection reset")

	mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs("u1").WillReturnError(boom)

	_, err := users.GetProfile(context.Background(), "u1")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if errors.Is(err, apperror.ErrNotFound) {
		t.Fatal("driver error must not be reported as not found")
	}
}

func TestUserDB_SetProfile_Upsert(t *testing.T) {
	db, mock := newMockDB(t)
	users := &UserDB{conn: db}

	mock.ExpectExec(`INSERT INTO users \(id, name, email, profile_picture, role, email_verified, created_at\)\s+` +
		`VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)\s+ON CONFLICT \(id\) DO UPDATE SET`).
		WithArgs("u1", "Ayu", "ayu@example.com", "/ayu.png", "user",
			sql.NullBool{Bool: false, Valid: true}, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	verified := false
	p := &model.UserProfile{
		ID:             "u1",
		Name:           "Ayu",
		Email:          "ayu@example.com",
		ProfilePicture: "/ayu.png",
		Role:           model.RoleUser,
		EmailVerified:  &verified,
	}
	if err := users.SetProfile(context.Background(), p); err != nil {
		t.Fatalf("SetProfile: %v", err)
	}
	if p.CreatedAt.IsZero() {
		t.Fatal("SetProfile should stamp CreatedAt")
	}
}

func TestUserDB_SetProfile_NilEmailVerified(t *testing.T) {
	db, mock := newMockDB(t)
	users := &UserDB{conn: db}
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("u3", "Citra", "", model.DefaultProfilePicture, "user", sql.NullBool{}, created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := users.SetProfile(context.Background(), &model.UserProfile{
		ID:             "u3",
		Name:           "Citra",
		ProfilePicture: model.DefaultProfilePicture,
		Role:           model.RoleUser,
		CreatedAt:      created,
	})
	if err != nil {
		t.Fatalf("SetProfile: %v", err)
	}
}

var gelarColumnNames = []string{"id", "title", "content", "category", "image_url", "likes", "approved", "author_id", "created_at"}

func TestGelarPostDB_ListApproved(t *testing.T) {
	db, mock := newMockDB(t)
	posts := &GelarPostDB{conn: db}
	now := time.Now()

	mock.ExpectQuery(`SELECT ` + gelarColumns + `\s+FROM gelar_posts\s+WHERE approved\s+` +
		`ORDER BY created_at DESC, id DESC\s+LIMIT \$1 OFFSET \$2`).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(gelarColumnNames).
			AddRow("g2", "Kedua", "isi", "cerita", "", 3, true, "u1", now).
			AddRow("g1", "Pertama", "isi", "puisi", "/img.png", 0, true, "u2", now.Add(-time.Hour)))

	got, err := posts.ListApproved(context.Background(), repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListApproved: %v", err)
	}
	if len(got) != 2 || got[0].ID != "g2" || got[1].ID != "g1" {
		t.Fatalf("unexpected posts: %+v", got)
	}
	if got[0].Likes != 3 || !got[0].Approved {
		t.Fatalf("row not scanned correctly: %+v", got[0])
	}
}

func TestGelarPostDB_SetApproved_Missing(t *testing.T) {
	db, mock := newMockDB(t)
	posts := &GelarPostDB{conn: db}

	mock.ExpectExec(`UPDATE gelar_posts SET approved = \$1 WHERE id = \$2`).
		WithArgs(true, "nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := posts.SetApproved(context.Background(), "nope", true)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

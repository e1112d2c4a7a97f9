package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kalina-news/kalina/internal/models"
)

type UserStore struct {
	db *sqlx.DB
}

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	q := s.db.Rebind(`
		INSERT INTO users (username, email, hashed_password, full_name, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := s.db.QueryRowxContext(ctx, q,
		u.Username, u.Email, u.Password, u.FullName, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	return mapErr(err)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	q := s.db.Rebind(`SELECT * FROM users WHERE id = ?`)
	if err := s.db.GetContext(ctx, &u, q, id); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// GetByLogin looks a user up by email or username, matching the login
// endpoint which accepts either.
func (s *UserStore) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	var u models.User
	q := s.db.Rebind(`SELECT * FROM users WHERE email = ? OR username = ?`)
	if err := s.db.GetContext(ctx, &u, q, login, login); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *UserStore) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	users := []models.User{}
	q := s.db.Rebind(`SELECT * FROM users ORDER BY id LIMIT ? OFFSET ?`)
	if err := s.db.SelectContext(ctx, &users, q, limit, offset); err != nil {
		return nil, mapErr(err)
	}
	return users, nil
}

func (s *UserStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`)
	return n, mapErr(err)
}

// Update persists the mutable fields of u.
func (s *UserStore) Update(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()

	q := s.db.Rebind(`
		UPDATE users
		SET email = ?, hashed_password = ?, full_name = ?, role = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`)
	res, err := s.db.ExecContext(ctx, q,
		u.Email, u.Password, u.FullName, u.Role, u.IsActive, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

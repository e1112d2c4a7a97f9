package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kalina-news/kalina/internal/models"
)

type CategoryStore struct {
	db *sqlx.DB
}

func (s *CategoryStore) Create(ctx context.Context, c *models.Category) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	q := s.db.Rebind(`
		INSERT INTO categories (name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)
	err := s.db.QueryRowxContext(ctx, q, c.Name, c.Description, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	return mapErr(err)
}

func (s *CategoryStore) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	var c models.Category
	q := s.db.Rebind(`SELECT * FROM categories WHERE id = ?`)
	if err := s.db.GetContext(ctx, &c, q, id); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *CategoryStore) List(ctx context.Context, limit, offset int) ([]models.Category, error) {
	categories := []models.Category{}
	q := s.db.Rebind(`SELECT * FROM categories ORDER BY name LIMIT ? OFFSET ?`)
	if err := s.db.SelectContext(ctx, &categories, q, limit, offset); err != nil {
		return nil, mapErr(err)
	}
	return categories, nil
}

func (s *CategoryStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM categories`)
	return n, mapErr(err)
}

func (s *CategoryStore) Update(ctx context.Context, c *models.Category) error {
	c.UpdatedAt = time.Now().UTC()

	q := s.db.Rebind(`UPDATE categories SET name = ?, description = ?, updated_at = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, c.Name, c.Description, c.UpdatedAt, c.ID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *CategoryStore) Delete(ctx context.Context, id int64) error {
	q := s.db.Rebind(`DELETE FROM categories WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

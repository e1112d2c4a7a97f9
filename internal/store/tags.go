package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kalina-news/kalina/internal/models"
)

type TagStore struct {
	db *sqlx.DB
}

func (s *TagStore) Create(ctx context.Context, t *models.Tag) error {
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	q := s.db.Rebind(`
		INSERT INTO tags (name, created_at, updated_at)
		VALUES (?, ?, ?)
		RETURNING id
	`)
	err := s.db.QueryRowxContext(ctx, q, t.Name, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
	return mapErr(err)
}

func (s *TagStore) GetByID(ctx context.Context, id int64) (*models.Tag, error) {
	var t models.Tag
	q := s.db.Rebind(`SELECT * FROM tags WHERE id = ?`)
	if err := s.db.GetContext(ctx, &t, q, id); err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (s *TagStore) List(ctx context.Context, limit, offset int) ([]models.Tag, error) {
	tags := []models.Tag{}
	q := s.db.Rebind(`SELECT * FROM tags ORDER BY name LIMIT ? OFFSET ?`)
	if err := s.db.SelectContext(ctx, &tags, q, limit, offset); err != nil {
		return nil, mapErr(err)
	}
	return tags, nil
}

func (s *TagStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM tags`)
	return n, mapErr(err)
}

func (s *TagStore) Update(ctx context.Context, t *models.Tag) error {
	t.UpdatedAt = time.Now().UTC()

	q := s.db.Rebind(`UPDATE tags SET name = ?, updated_at = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, t.Name, t.UpdatedAt, t.ID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *TagStore) Delete(ctx context.Context, id int64) error {
	q := s.db.Rebind(`DELETE FROM tags WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

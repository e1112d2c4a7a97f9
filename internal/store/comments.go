package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kalina-news/kalina/internal/models"
)

type CommentStore struct {
	db *sqlx.DB
}

func (s *CommentStore) Create(ctx context.Context, c *models.Comment) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	q := s.db.Rebind(`
		INSERT INTO comments (article_id, author_id, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := s.db.QueryRowxContext(ctx, q, c.ArticleID, c.AuthorID, c.Body, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	return mapErr(err)
}

func (s *CommentStore) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	var c models.Comment
	q := s.db.Rebind(`
		SELECT c.id, c.article_id, c.author_id, c.body, c.created_at, c.updated_at, u.username AS author_name
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.id = ?
	`)
	if err := s.db.GetContext(ctx, &c, q, id); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *CommentStore) ListByArticle(ctx context.Context, articleID int64, limit, offset int) ([]models.Comment, error) {
	comments := []models.Comment{}
	q := s.db.Rebind(`
		SELECT c.id, c.article_id, c.author_id, c.body, c.created_at, c.updated_at, u.username AS author_name
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.article_id = ?
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT ? OFFSET ?
	`)
	if err := s.db.SelectContext(ctx, &comments, q, articleID, limit, offset); err != nil {
		return nil, mapErr(err)
	}
	return comments, nil
}

func (s *CommentStore) CountByArticle(ctx context.Context, articleID int64) (int64, error) {
	var n int64
	q := s.db.Rebind(`SELECT COUNT(*) FROM comments WHERE article_id = ?`)
	err := s.db.GetContext(ctx, &n, q, articleID)
	return n, mapErr(err)
}

func (s *CommentStore) Delete(ctx context.Context, id int64) error {
	q := s.db.Rebind(`DELETE FROM comments WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

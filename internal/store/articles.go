package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kalina-news/kalina/internal/models"
)

type ArticleStore struct {
	db *sqlx.DB
}

// ArticleFilter narrows List results. Nil pointer fields are not filtered on.
type ArticleFilter struct {
	Published *int
	AuthorID  *int64
	Limit     int
	Offset    int
}

const articleColumns = `a.id, a.title, a.description, a.body, a.author_id, a.category_id,
	a.is_published, a.publication_date, a.created_at, a.updated_at, u.username AS author_name`

// Create inserts the article and links the given tags. Tag ids that do not
// exist are silently dropped.
func (s *ArticleStore) Create(ctx context.Context, a *models.Article, tagIDs []int64) error {
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	q := tx.Rebind(`
		INSERT INTO articles (title, description, body, author_id, category_id, is_published, publication_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err = tx.QueryRowxContext(ctx, q,
		a.Title, a.Description, a.Body, a.AuthorID, a.CategoryID,
		a.IsPublished, a.PublicationDate, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return mapErr(err)
	}

	if err := replaceTags(ctx, tx, a.ID, tagIDs); err != nil {
		return mapErr(err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	a.Tags, err = s.tagsFor(ctx, a.ID)
	return err
}

func (s *ArticleStore) GetByID(ctx context.Context, id int64) (*models.Article, error) {
	var a models.Article
	q := s.db.Rebind(`
		SELECT ` + articleColumns + `
		FROM articles a
		JOIN users u ON u.id = a.author_id
		WHERE a.id = ?
	`)
	if err := s.db.GetContext(ctx, &a, q, id); err != nil {
		return nil, mapErr(err)
	}

	var err error
	a.Tags, err = s.tagsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns a page of articles plus the total count of rows matching the
// filter.
func (s *ArticleStore) List(ctx context.Context, f ArticleFilter) ([]models.Article, int64, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if f.Published != nil {
		where = append(where, "a.is_published = ?")
		args = append(args, *f.Published)
	}
	if f.AuthorID != nil {
		where = append(where, "a.author_id = ?")
		args = append(args, *f.AuthorID)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countQ := s.db.Rebind("SELECT COUNT(*) FROM articles a WHERE " + cond)
	if err := s.db.GetContext(ctx, &total, countQ, args...); err != nil {
		return nil, 0, mapErr(err)
	}

	articles := []models.Article{}
	listQ := s.db.Rebind(fmt.Sprintf(`
		SELECT %s
		FROM articles a
		JOIN users u ON u.id = a.author_id
		WHERE %s
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT ? OFFSET ?
	`, articleColumns, cond))
	if err := s.db.SelectContext(ctx, &articles, listQ, append(args, f.Limit, f.Offset)...); err != nil {
		return nil, 0, mapErr(err)
	}

	if err := s.attachTags(ctx, articles); err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// Update persists the article's mutable fields. A nil tagIDs leaves the tag
// links untouched; an empty slice clears them.
func (s *ArticleStore) Update(ctx context.Context, a *models.Article, tagIDs []int64) error {
	a.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	q := tx.Rebind(`
		UPDATE articles
		SET title = ?, description = ?, body = ?, category_id = ?, is_published = ?, publication_date = ?, updated_at = ?
		WHERE id = ?
	`)
	res, err := tx.ExecContext(ctx, q,
		a.Title, a.Description, a.Body, a.CategoryID,
		a.IsPublished, a.PublicationDate, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if tagIDs != nil {
		if err := replaceTags(ctx, tx, a.ID, tagIDs); err != nil {
			return mapErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	a.Tags, err = s.tagsFor(ctx, a.ID)
	return err
}

// Delete removes the article; comments and tag links go with it via
// ON DELETE CASCADE.
func (s *ArticleStore) Delete(ctx context.Context, id int64) error {
	q := s.db.Rebind(`DELETE FROM articles WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Search matches the query as a case-insensitive substring of the title,
// body, or author username of published articles.
func (s *ArticleStore) Search(ctx context.Context, query string, limit, offset int) ([]models.Article, int64, error) {
	pattern := "%" + strings.ToLower(query) + "%"

	cond := `a.is_published = 1 AND (
		LOWER(a.title) LIKE ? OR LOWER(a.body) LIKE ? OR LOWER(u.username) LIKE ?
	)`

	var total int64
	countQ := s.db.Rebind(`
		SELECT COUNT(*) FROM articles a
		JOIN users u ON u.id = a.author_id
		WHERE ` + cond)
	if err := s.db.GetContext(ctx, &total, countQ, pattern, pattern, pattern); err != nil {
		return nil, 0, mapErr(err)
	}

	articles := []models.Article{}
	listQ := s.db.Rebind(`
		SELECT ` + articleColumns + `
		FROM articles a
		JOIN users u ON u.id = a.author_id
		WHERE ` + cond + `
		ORDER BY a.publication_date DESC, a.id DESC
		LIMIT ? OFFSET ?
	`)
	if err := s.db.SelectContext(ctx, &articles, listQ, pattern, pattern, pattern, limit, offset); err != nil {
		return nil, 0, mapErr(err)
	}

	if err := s.attachTags(ctx, articles); err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

func replaceTags(ctx context.Context, tx *sqlx.Tx, articleID int64, tagIDs []int64) error {
	q := tx.Rebind(`DELETE FROM article_tags WHERE article_id = ?`)
	if _, err := tx.ExecContext(ctx, q, articleID); err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}

	insert, args, err := sqlx.In(
		`INSERT INTO article_tags (article_id, tag_id) SELECT ?, id FROM tags WHERE id IN (?)`,
		articleID, tagIDs,
	)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(insert), args...)
	return err
}

func (s *ArticleStore) tagsFor(ctx context.Context, articleID int64) ([]models.Tag, error) {
	tags := []models.Tag{}
	q := s.db.Rebind(`
		SELECT t.id, t.name, t.created_at, t.updated_at
		FROM article_tags at
		JOIN tags t ON t.id = at.tag_id
		WHERE at.article_id = ?
		ORDER BY t.name
	`)
	if err := s.db.SelectContext(ctx, &tags, q, articleID); err != nil {
		return nil, mapErr(err)
	}
	return tags, nil
}

// attachTags loads tags for a whole page of articles in one query.
func (s *ArticleStore) attachTags(ctx context.Context, articles []models.Article) error {
	if len(articles) == 0 {
		return nil
	}

	ids := make([]int64, len(articles))
	byID := make(map[int64]*models.Article, len(articles))
	for i := range articles {
		ids[i] = articles[i].ID
		byID[articles[i].ID] = &articles[i]
		articles[i].Tags = []models.Tag{}
	}

	query, args, err := sqlx.In(`
		SELECT at.article_id, t.id, t.name, t.created_at, t.updated_at
		FROM article_tags at
		JOIN tags t ON t.id = at.tag_id
		WHERE at.article_id IN (?)
		ORDER BY t.name
	`, ids)
	if err != nil {
		return err
	}

	var rows []struct {
		ArticleID int64 `db:"article_id"`
		models.Tag
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return mapErr(err)
	}

	for _, row := range rows {
		if a, ok := byID[row.ArticleID]; ok {
			a.Tags = append(a.Tags, row.Tag)
		}
	}
	return nil
}

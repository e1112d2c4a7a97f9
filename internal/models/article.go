package models

import (
	"database/sql"
	"time"
)

// Publication status values for Article.IsPublished.
const (
	StatusDraft     = 0
	StatusPublished = 1
)

type Article struct {
	ID              int64          `db:"id" json:"id"`
	Title           string         `db:"title" json:"title"`
	Description     sql.NullString `db:"description" json:"description,omitempty"`
	Body            string         `db:"body" json:"body"`
	AuthorID        int64          `db:"author_id" json:"author_id"`
	CategoryID      sql.NullInt64  `db:"category_id" json:"category_id,omitempty"`
	IsPublished     int            `db:"is_published" json:"is_published"`
	PublicationDate sql.NullTime   `db:"publication_date" json:"publication_date,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`

	// AuthorName is joined from the users table on reads.
	AuthorName string `db:"author_name" json:"author_name,omitempty"`
	// Tags are loaded through the article_tags link table.
	Tags []Tag `db:"-" json:"tags"`
}

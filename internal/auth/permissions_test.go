package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kalina-news/kalina/internal/models"
)

func TestAllows(t *testing.T) {
	tests := []struct {
		name   string
		role   models.Role
		action Action
		want   bool
	}{
		{"reader cannot create articles", models.RoleReader, ActionArticleCreate, false},
		{"author can create articles", models.RoleAuthor, ActionArticleCreate, true},
		{"editor can create articles", models.RoleEditor, ActionArticleCreate, true},
		{"author cannot delete articles", models.RoleAuthor, ActionArticleDelete, false},
		{"editor can delete articles", models.RoleEditor, ActionArticleDelete, true},
		{"admin can delete articles", models.RoleAdmin, ActionArticleDelete, true},
		{"editor cannot manage categories", models.RoleEditor, ActionCategoryManage, false},
		{"admin can manage categories", models.RoleAdmin, ActionCategoryManage, true},
		{"editor cannot manage tags", models.RoleEditor, ActionTagManage, false},
		{"admin can manage tags", models.RoleAdmin, ActionTagManage, true},
		{"editor cannot list users", models.RoleEditor, ActionUserList, false},
		{"admin can list users", models.RoleAdmin, ActionUserList, true},
		{"unknown role can do nothing", models.Role("superuser"), ActionArticleCreate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allows(tt.role, tt.action))
		})
	}
}

func TestCanModifyArticle(t *testing.T) {
	assert.True(t, CanModifyArticle(models.RoleAuthor, 1, 1), "owner")
	assert.False(t, CanModifyArticle(models.RoleAuthor, 2, 1), "other author")
	assert.True(t, CanModifyArticle(models.RoleEditor, 2, 1), "editor")
	assert.True(t, CanModifyArticle(models.RoleAdmin, 2, 1), "admin")
	assert.False(t, CanModifyArticle(models.RoleReader, 2, 1), "reader")
}

func TestCanDeleteComment(t *testing.T) {
	assert.True(t, CanDeleteComment(models.RoleReader, 7, 7), "owner")
	assert.False(t, CanDeleteComment(models.RoleReader, 8, 7), "other reader")
	assert.True(t, CanDeleteComment(models.RoleEditor, 8, 7), "editor")
	assert.True(t, CanDeleteComment(models.RoleAdmin, 8, 7), "admin")
}

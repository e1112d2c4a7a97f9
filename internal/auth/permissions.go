// Package auth holds the permission rules consulted by every mutating route.
// Handlers never compare role strings directly; they ask this package.
package auth

import "github.com/kalina-news/kalina/internal/models"

// Action is a closed set of permission-gated operations.
type Action int

const (
	ActionArticleCreate Action = iota
	ActionArticleDelete
	ActionCategoryManage
	ActionTagManage
	ActionUserList
	ActionUserManage
)

// Allows reports whether role may perform action outright, without regard
// to resource ownership.
func Allows(role models.Role, action Action) bool {
	switch action {
	case ActionArticleCreate:
		return role == models.RoleAuthor || role == models.RoleEditor || role == models.RoleAdmin
	case ActionArticleDelete:
		return role == models.RoleEditor || role == models.RoleAdmin
	case ActionCategoryManage, ActionTagManage, ActionUserList, ActionUserManage:
		return role == models.RoleAdmin
	}
	return false
}

// CanModifyArticle allows the article's author plus editors and admins.
func CanModifyArticle(role models.Role, userID, authorID int64) bool {
	if userID == authorID {
		return true
	}
	return role == models.RoleEditor || role == models.RoleAdmin
}

// CanViewDraft mirrors CanModifyArticle: drafts are visible to their author,
// editors and admins only.
func CanViewDraft(role models.Role, userID, authorID int64) bool {
	return CanModifyArticle(role, userID, authorID)
}

// CanDeleteComment allows the comment's owner plus editors and admins.
func CanDeleteComment(role models.Role, userID, commentAuthorID int64) bool {
	if userID == commentAuthorID {
		return true
	}
	return role == models.RoleEditor || role == models.RoleAdmin
}

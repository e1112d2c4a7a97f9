package handlers

import (
	"net/http"
	"strconv"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

type pageParams struct {
	Page    int
	PerPage int
}

func (p pageParams) Offset() int { return (p.Page - 1) * p.PerPage }

// pageFromRequest reads ?page and ?per_page, clamping to sane bounds.
func pageFromRequest(r *http.Request) pageParams {
	p := pageParams{Page: 1, PerPage: defaultPerPage}

	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && v > 0 {
		p.PerPage = v
		if p.PerPage > maxPerPage {
			p.PerPage = maxPerPage
		}
	}
	return p
}

// ListResponse is the envelope for every paginated collection.
type ListResponse struct {
	Items   interface{} `json:"items"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

func listResponse(items interface{}, total int64, p pageParams) ListResponse {
	return ListResponse{Items: items, Total: total, Page: p.Page, PerPage: p.PerPage}
}

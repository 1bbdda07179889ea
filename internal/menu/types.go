// Package menu holds the category and menu-item catalog. It is ordinary
// request/response CRUD over the database; the interesting invariants live
// in internal/auth.
package menu

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("menu: not found")
	ErrConflict     = errors.New("menu: already exists")
	ErrInvalidInput = errors.New("menu: invalid input")
)

// Category groups menu items on the public menu.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	IsActive    bool      `json:"isActive"`
	SortOrder   int       `json:"sortOrder"`
	ItemCount   int       `json:"itemCount,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Item is a single dish. Price is stored in minor units (cents) to avoid
// floating point money.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"priceCents"`
	Image       string    `json:"image,omitempty"`
	CategoryID  *string   `json:"categoryId,omitempty"`
	Ingredients []string  `json:"ingredients,omitempty"`
	Allergens   []string  `json:"allergens,omitempty"`
	IsAvailable bool      `json:"isAvailable"`
	IsFeatured  bool      `json:"isFeatured"`
	SortOrder   int       `json:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Pagination describes one page of a list result.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination computes the derived page fields.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1 && total > 0,
	}
}

// CategoryQuery filters and pages the category list.
type CategoryQuery struct {
	Page     int
	Limit    int
	IsActive *bool
}

// ItemQuery filters and pages the item list.
type ItemQuery struct {
	Page        int
	Limit       int
	CategoryID  string
	IsAvailable *bool
	IsFeatured  *bool
	Search      string
}

// ItemPatch is a partial update for bulk operations.
type ItemPatch struct {
	IsAvailable *bool
	IsFeatured  *bool
	CategoryID  *string
}

package menu

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Service is thin CRUD glue over the category and item stores.
type Service struct {
	categories CategoryStore
	items      ItemStore
}

// NewService wires the menu service.
func NewService(categories CategoryStore, items ItemStore) (*Service, error) {
	if categories == nil || items == nil {
		return nil, fmt.Errorf("%w: stores are required", ErrInvalidInput)
	}
	return &Service{categories: categories, items: items}, nil
}

// CategoryInput is the create/update payload for categories.
type CategoryInput struct {
	Name        string
	Description string
	Image       string
	IsActive    *bool
	SortOrder   *int
}

// CreateCategory creates a category with a slug derived from the name.
// Duplicate name or slug is a conflict.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	slug := Slugify(name)

	if _, err := s.categories.FindByNameOrSlug(ctx, name, slug); err == nil {
		return nil, fmt.Errorf("%w: category with this name already exists", ErrConflict)
	} else if err != ErrNotFound {
		return nil, err
	}

	c := &Category{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		Image:       strings.TrimSpace(in.Image),
		IsActive:    true,
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if in.SortOrder != nil {
		c.SortOrder = *in.SortOrder
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCategory returns one category by id.
func (s *Service) GetCategory(ctx context.Context, id string) (*Category, error) {
	return s.categories.FindByID(ctx, id)
}

// GetCategoryBySlug returns one category by its public slug.
func (s *Service) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	return s.categories.FindBySlug(ctx, slug)
}

// ListCategories returns one page of categories.
func (s *Service) ListCategories(ctx context.Context, q CategoryQuery) ([]*Category, Pagination, error) {
	q.Page, q.Limit = clampPage(q.Page, q.Limit)
	cats, total, err := s.categories.List(ctx, q)
	if err != nil {
		return nil, Pagination{}, err
	}
	return cats, NewPagination(q.Page, q.Limit, total), nil
}

// UpdateCategory patches a category. A name change re-derives the slug and
// re-checks uniqueness.
func (s *Service) UpdateCategory(ctx context.Context, id string, in CategoryInput) (*Category, error) {
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" && name != c.Name {
		slug := Slugify(name)
		if existing, err := s.categories.FindByNameOrSlug(ctx, name, slug); err == nil && existing.ID != id {
			return nil, fmt.Errorf("%w: category with this name already exists", ErrConflict)
		} else if err != nil && err != ErrNotFound {
			return nil, err
		}
		c.Name = name
		c.Slug = slug
	}
	if in.Description != "" {
		c.Description = strings.TrimSpace(in.Description)
	}
	if in.Image != "" {
		c.Image = strings.TrimSpace(in.Image)
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if in.SortOrder != nil {
		c.SortOrder = *in.SortOrder
	}

	if err := s.categories.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory removes a category; its items are detached, not deleted.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	return s.categories.Delete(ctx, id)
}

// ItemInput is the create/update payload for menu items.
type ItemInput struct {
	Name        string
	Description string
	PriceCents  *int64
	Image       string
	CategoryID  *string
	Ingredients []string
	Allergens   []string
	IsAvailable *bool
	IsFeatured  *bool
	SortOrder   *int
}

// CreateItem creates a menu item, validating its category when given.
func (s *Service) CreateItem(ctx context.Context, in ItemInput) (*Item, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: item name is required", ErrInvalidInput)
	}
	if in.PriceCents == nil || *in.PriceCents < 0 {
		return nil, fmt.Errorf("%w: price is required and cannot be negative", ErrInvalidInput)
	}
	if in.CategoryID != nil {
		if _, err := s.categories.FindByID(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
	}

	it := &Item{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		PriceCents:  *in.PriceCents,
		Image:       strings.TrimSpace(in.Image),
		CategoryID:  in.CategoryID,
		Ingredients: in.Ingredients,
		Allergens:   in.Allergens,
		IsAvailable: true,
	}
	if in.IsAvailable != nil {
		it.IsAvailable = *in.IsAvailable
	}
	if in.IsFeatured != nil {
		it.IsFeatured = *in.IsFeatured
	}
	if in.SortOrder != nil {
		it.SortOrder = *in.SortOrder
	}
	if err := s.items.Create(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// GetItem returns one item by id.
func (s *Service) GetItem(ctx context.Context, id string) (*Item, error) {
	return s.items.FindByID(ctx, id)
}

// ListItems returns one page of items.
func (s *Service) ListItems(ctx context.Context, q ItemQuery) ([]*Item, Pagination, error) {
	q.Page, q.Limit = clampPage(q.Page, q.Limit)
	items, total, err := s.items.List(ctx, q)
	if err != nil {
		return nil, Pagination{}, err
	}
	return items, NewPagination(q.Page, q.Limit, total), nil
}

// UpdateItem patches a menu item.
func (s *Service) UpdateItem(ctx context.Context, id string, in ItemInput) (*Item, error) {
	it, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		it.Name = name
	}
	if in.Description != "" {
		it.Description = strings.TrimSpace(in.Description)
	}
	if in.PriceCents != nil {
		if *in.PriceCents < 0 {
			return nil, fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
		}
		it.PriceCents = *in.PriceCents
	}
	if in.Image != "" {
		it.Image = strings.TrimSpace(in.Image)
	}
	if in.CategoryID != nil {
		if *in.CategoryID != "" {
			if _, err := s.categories.FindByID(ctx, *in.CategoryID); err != nil {
				return nil, err
			}
			it.CategoryID = in.CategoryID
		} else {
			it.CategoryID = nil
		}
	}
	if in.Ingredients != nil {
		it.Ingredients = in.Ingredients
	}
	if in.Allergens != nil {
		it.Allergens = in.Allergens
	}
	if in.IsAvailable != nil {
		it.IsAvailable = *in.IsAvailable
	}
	if in.IsFeatured != nil {
		it.IsFeatured = *in.IsFeatured
	}
	if in.SortOrder != nil {
		it.SortOrder = *in.SortOrder
	}

	if err := s.items.Update(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// DeleteItem removes one menu item.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	return s.items.Delete(ctx, id)
}

// BulkUpdateItems applies one patch to many items and reports how many rows
// changed.
func (s *Service) BulkUpdateItems(ctx context.Context, itemIDs []string, patch ItemPatch) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, fmt.Errorf("%w: at least one item id is required", ErrInvalidInput)
	}
	if patch.CategoryID != nil && *patch.CategoryID != "" {
		if _, err := s.categories.FindByID(ctx, *patch.CategoryID); err != nil {
			return 0, err
		}
	}
	return s.items.BulkPatch(ctx, itemIDs, patch)
}

// BulkDeleteItems removes many items and reports how many rows were deleted.
func (s *Service) BulkDeleteItems(ctx context.Context, itemIDs []string) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, fmt.Errorf("%w: at least one item id is required", ErrInvalidInput)
	}
	return s.items.BulkDelete(ctx, itemIDs)
}

var slugScrub = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a display name into a URL slug.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugScrub.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

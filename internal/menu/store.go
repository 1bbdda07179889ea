package menu

import "context"

// CategoryStore persists categories.
type CategoryStore interface {
	Create(ctx context.Context, c *Category) error
	FindByID(ctx context.Context, id string) (*Category, error)
	FindBySlug(ctx context.Context, slug string) (*Category, error)
	FindByNameOrSlug(ctx context.Context, name, slug string) (*Category, error)
	List(ctx context.Context, q CategoryQuery) ([]*Category, int, error)
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id string) error
}

// ItemStore persists menu items.
type ItemStore interface {
	Create(ctx context.Context, it *Item) error
	FindByID(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context, q ItemQuery) ([]*Item, int, error)
	Update(ctx context.Context, it *Item) error
	Delete(ctx context.Context, id string) error
	BulkPatch(ctx context.Context, ids []string, patch ItemPatch) (int64, error)
	BulkDelete(ctx context.Context, ids []string) (int64, error)
}

package menu

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/upmenu/menu-api/internal/ids"
)

// PGCategoryStore implements CategoryStore over PostgreSQL.
type PGCategoryStore struct{ db *sql.DB }

func NewPGCategoryStore(db *sql.DB) *PGCategoryStore { return &PGCategoryStore{db: db} }

var _ CategoryStore = (*PGCategoryStore)(nil)

const categoryColumns = `id, name, slug, description, image, is_active, sort_order, created_at, updated_at`

func (s *PGCategoryStore) Create(ctx context.Context, c *Category) error {
	if c.ID == "" {
		c.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into categories(id, name, slug, description, image, is_active, sort_order)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		c.ID, c.Name, c.Slug, c.Description, c.Image, c.IsActive, c.SortOrder,
	)
	return err
}

func scanCategory(row interface{ Scan(...any) error }) (*Category, error) {
	var (
		c           Category
		desc, image sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &desc, &image, &c.IsActive, &c.SortOrder,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.Description = desc.String
	c.Image = image.String
	return &c, nil
}

func (s *PGCategoryStore) FindByID(ctx context.Context, id string) (*Category, error) {
	return scanCategory(s.db.QueryRowContext(ctx,
		`select `+categoryColumns+` from categories where id=$1`, id))
}

func (s *PGCategoryStore) FindBySlug(ctx context.Context, slug string) (*Category, error) {
	return scanCategory(s.db.QueryRowContext(ctx,
		`select `+categoryColumns+` from categories where slug=$1`, slug))
}

func (s *PGCategoryStore) FindByNameOrSlug(ctx context.Context, name, slug string) (*Category, error) {
	return scanCategory(s.db.QueryRowContext(ctx,
		`select `+categoryColumns+` from categories where name=$1 or slug=$2`, name, slug))
}

func (s *PGCategoryStore) List(ctx context.Context, q CategoryQuery) ([]*Category, int, error) {
	where := "1=1"
	args := []any{}
	if q.IsActive != nil {
		args = append(args, *q.IsActive)
		where += fmt.Sprintf(" and is_active=$%d", len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from categories where `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.Limit, (q.Page-1)*q.Limit)
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`select %s from categories where %s order by sort_order asc, name asc limit $%d offset $%d`,
			categoryColumns, where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var cats []*Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, err
		}
		cats = append(cats, c)
	}
	return cats, total, rows.Err()
}

func (s *PGCategoryStore) Update(ctx context.Context, c *Category) error {
	res, err := s.db.ExecContext(ctx,
		`update categories set name=$2, slug=$3, description=$4, image=$5, is_active=$6, sort_order=$7, updated_at=now()
		 where id=$1`,
		c.ID, c.Name, c.Slug, c.Description, c.Image, c.IsActive, c.SortOrder,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete detaches items before removing the category so dishes survive a
// category reshuffle.
func (s *PGCategoryStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`update menu_items set category_id=null, updated_at=now() where category_id=$1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `delete from categories where id=$1`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PGItemStore implements ItemStore over PostgreSQL. Ingredient and allergen
// lists are stored as JSONB.
type PGItemStore struct{ db *sql.DB }

func NewPGItemStore(db *sql.DB) *PGItemStore { return &PGItemStore{db: db} }

var _ ItemStore = (*PGItemStore)(nil)

const itemColumns = `id, name, description, price_cents, image, category_id, ingredients, allergens, is_available, is_featured, sort_order, created_at, updated_at`

func (s *PGItemStore) Create(ctx context.Context, it *Item) error {
	if it.ID == "" {
		it.ID = ids.New()
	}
	ingredients, allergens, err := marshalLists(it)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`insert into menu_items(id, name, description, price_cents, image, category_id, ingredients, allergens, is_available, is_featured, sort_order)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		it.ID, it.Name, it.Description, it.PriceCents, it.Image, it.CategoryID,
		ingredients, allergens, it.IsAvailable, it.IsFeatured, it.SortOrder,
	)
	return err
}

func marshalLists(it *Item) ([]byte, []byte, error) {
	ingredients, err := json.Marshal(it.Ingredients)
	if err != nil {
		return nil, nil, err
	}
	allergens, err := json.Marshal(it.Allergens)
	if err != nil {
		return nil, nil, err
	}
	return ingredients, allergens, nil
}

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	var (
		it                     Item
		desc, image            sql.NullString
		categoryID             sql.NullString
		ingredients, allergens []byte
	)
	if err := row.Scan(&it.ID, &it.Name, &desc, &it.PriceCents, &image, &categoryID,
		&ingredients, &allergens, &it.IsAvailable, &it.IsFeatured, &it.SortOrder,
		&it.CreatedAt, &it.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	it.Description = desc.String
	it.Image = image.String
	if categoryID.Valid {
		id := categoryID.String
		it.CategoryID = &id
	}
	_ = json.Unmarshal(ingredients, &it.Ingredients)
	_ = json.Unmarshal(allergens, &it.Allergens)
	return &it, nil
}

func (s *PGItemStore) FindByID(ctx context.Context, id string) (*Item, error) {
	return scanItem(s.db.QueryRowContext(ctx,
		`select `+itemColumns+` from menu_items where id=$1`, id))
}

func (s *PGItemStore) List(ctx context.Context, q ItemQuery) ([]*Item, int, error) {
	where := "1=1"
	args := []any{}
	if q.CategoryID != "" {
		args = append(args, q.CategoryID)
		where += fmt.Sprintf(" and category_id=$%d", len(args))
	}
	if q.IsAvailable != nil {
		args = append(args, *q.IsAvailable)
		where += fmt.Sprintf(" and is_available=$%d", len(args))
	}
	if q.IsFeatured != nil {
		args = append(args, *q.IsFeatured)
		where += fmt.Sprintf(" and is_featured=$%d", len(args))
	}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where += fmt.Sprintf(" and (name ilike $%d or description ilike $%d)", len(args), len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from menu_items where `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.Limit, (q.Page-1)*q.Limit)
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`select %s from menu_items where %s order by sort_order asc, name asc limit $%d offset $%d`,
			itemColumns, where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

func (s *PGItemStore) Update(ctx context.Context, it *Item) error {
	ingredients, allergens, err := marshalLists(it)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`update menu_items set name=$2, description=$3, price_cents=$4, image=$5, category_id=$6,
		 ingredients=$7, allergens=$8, is_available=$9, is_featured=$10, sort_order=$11, updated_at=now()
		 where id=$1`,
		it.ID, it.Name, it.Description, it.PriceCents, it.Image, it.CategoryID,
		ingredients, allergens, it.IsAvailable, it.IsFeatured, it.SortOrder,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PGItemStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from menu_items where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PGItemStore) BulkPatch(ctx context.Context, itemIDs []string, patch ItemPatch) (int64, error) {
	sets := []string{"updated_at=now()"}
	args := []any{}
	if patch.IsAvailable != nil {
		args = append(args, *patch.IsAvailable)
		sets = append(sets, fmt.Sprintf("is_available=$%d", len(args)))
	}
	if patch.IsFeatured != nil {
		args = append(args, *patch.IsFeatured)
		sets = append(sets, fmt.Sprintf("is_featured=$%d", len(args)))
	}
	if patch.CategoryID != nil {
		// Empty string means detach, never an FK value.
		if *patch.CategoryID == "" {
			sets = append(sets, "category_id=null")
		} else {
			args = append(args, *patch.CategoryID)
			sets = append(sets, fmt.Sprintf("category_id=$%d", len(args)))
		}
	}
	if len(sets) == 1 {
		return 0, ErrInvalidInput
	}

	placeholders := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		args = append(args, id)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`update menu_items set %s where id in (%s)`,
			strings.Join(sets, ", "), strings.Join(placeholders, ",")),
		args...,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PGItemStore) BulkDelete(ctx context.Context, itemIDs []string) (int64, error) {
	args := make([]any, 0, len(itemIDs))
	placeholders := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		args = append(args, id)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`delete from menu_items where id in (%s)`, strings.Join(placeholders, ",")),
		args...,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

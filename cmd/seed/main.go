// Command seed provisions a development database with a default admin, a
// manager, and a small sample menu. Passwords are hashed at runtime so the
// bcrypt cost stays configurable; never point this at production.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/upmenu/menu-api/internal/auth"
	"github.com/upmenu/menu-api/internal/menu"
)

func main() {
	log.SetFlags(0)
	_ = godotenv.Load()

	dsn := flag.String("dsn", os.Getenv("MENU_API_PG_DSN"), "PostgreSQL DSN")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or MENU_API_PG_DSN")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := seed(ctx, db); err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Println("Seed complete")
}

func seed(ctx context.Context, db *sql.DB) error {
	users := auth.NewPGUserStore(db)
	cats := menu.NewPGCategoryStore(db)
	items := menu.NewPGItemStore(db)

	cost := auth.DefaultBcryptCost
	if v, err := strconv.Atoi(os.Getenv("MENU_API_BCRYPT_COST")); err == nil && v > 0 {
		cost = v
	}

	seedUsers := []struct {
		email, name, password string
		role                  auth.Role
	}{
		{"admin@upmenu.com", "Admin", "admin123", auth.RoleAdmin},
		{"manager@upmenu.com", "Manager", "manager123", auth.RoleManager},
	}
	for _, u := range seedUsers {
		if _, err := users.FindByEmail(ctx, u.email); err == nil {
			log.Printf("user %s already exists, skipping", u.email)
			continue
		}
		hash, err := auth.HashPassword(u.password, cost)
		if err != nil {
			return err
		}
		if err := users.Create(ctx, &auth.AdminUser{
			Email:        u.email,
			Name:         u.name,
			PasswordHash: hash,
			Role:         u.role,
			Status:       auth.StatusActive,
		}); err != nil {
			return err
		}
		log.Printf("created user %s (%s)", u.email, u.role)
	}

	seedCategories := []struct {
		name, description string
		sortOrder         int
	}{
		{"Starters", "Small plates to begin with", 1},
		{"Mains", "Our signature dishes", 2},
		{"Desserts", "Sweet endings", 3},
	}
	catIDs := make(map[string]string, len(seedCategories))
	for _, c := range seedCategories {
		slug := menu.Slugify(c.name)
		if existing, err := cats.FindBySlug(ctx, slug); err == nil {
			catIDs[c.name] = existing.ID
			log.Printf("category %s already exists, skipping", c.name)
			continue
		}
		cat := &menu.Category{
			Name:        c.name,
			Slug:        slug,
			Description: c.description,
			IsActive:    true,
			SortOrder:   c.sortOrder,
		}
		if err := cats.Create(ctx, cat); err != nil {
			return err
		}
		catIDs[c.name] = cat.ID
		log.Printf("created category %s", c.name)
	}

	seedItems := []struct {
		name, description, category string
		priceCents                  int64
		ingredients, allergens      []string
		featured                    bool
	}{
		{"Bruschetta", "Grilled bread with tomato and basil", "Starters", 650,
			[]string{"bread", "tomato", "basil", "olive oil"}, []string{"gluten"}, false},
		{"Margherita Pizza", "Tomato, mozzarella, fresh basil", "Mains", 1250,
			[]string{"dough", "tomato", "mozzarella", "basil"}, []string{"gluten", "dairy"}, true},
		{"Grilled Salmon", "With seasonal vegetables", "Mains", 1890,
			[]string{"salmon", "vegetables", "lemon"}, []string{"fish"}, true},
		{"Tiramisu", "Classic mascarpone dessert", "Desserts", 750,
			[]string{"mascarpone", "espresso", "ladyfingers"}, []string{"dairy", "eggs", "gluten"}, false},
	}
	for i, it := range seedItems {
		q := menu.ItemQuery{Page: 1, Limit: 1, Search: it.name}
		if existing, _, err := items.List(ctx, q); err == nil && len(existing) > 0 {
			log.Printf("item %s already exists, skipping", it.name)
			continue
		}
		catID := catIDs[it.category]
		item := &menu.Item{
			Name:        it.name,
			Description: it.description,
			PriceCents:  it.priceCents,
			Ingredients: it.ingredients,
			Allergens:   it.allergens,
			IsAvailable: true,
			IsFeatured:  it.featured,
			SortOrder:   i + 1,
		}
		if catID != "" {
			item.CategoryID = &catID
		}
		if err := items.Create(ctx, item); err != nil {
			return err
		}
		log.Printf("created item %s", it.name)
	}

	return nil
}

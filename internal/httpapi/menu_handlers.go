package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/upmenu/menu-api/internal/auth"
	"github.com/upmenu/menu-api/internal/menu"
)

// isStaff reports whether the request carries a MANAGER-or-better identity.
// Anonymous and USER callers see only active categories and available items.
func isStaff(r *http.Request) bool {
	id, ok := auth.IdentityFromContext(r.Context())
	return ok && id.Role.Satisfies(auth.RoleManager)
}

func (a *API) handleListCategories(w http.ResponseWriter, r *http.Request) {
	q := menu.CategoryQuery{
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
		IsActive: queryBool(r, "isActive"),
	}
	if !isStaff(r) {
		active := true
		q.IsActive = &active
	}

	cats, page, err := a.menu.ListCategories(r.Context(), q)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": cats,
		"pagination": page,
	})
}

func (a *API) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := a.menu.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	if !cat.IsActive && !isStaff(r) {
		a.writeError(w, r, http.StatusNotFound, "Resource not found", "inactive category hidden from public")
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	IsActive    *bool  `json:"isActive,omitempty"`
	SortOrder   *int   `json:"sortOrder,omitempty"`
}

func (req categoryRequest) input() menu.CategoryInput {
	return menu.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		IsActive:    req.IsActive,
		SortOrder:   req.SortOrder,
	}
}

func (a *API) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	cat, err := a.menu.CreateCategory(r.Context(), req.input())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (a *API) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	cat, err := a.menu.UpdateCategory(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (a *API) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := a.menu.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Category deleted successfully"})
}

func (a *API) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := menu.ItemQuery{
		Page:        queryInt(r, "page"),
		Limit:       queryInt(r, "limit"),
		CategoryID:  r.URL.Query().Get("categoryId"),
		IsAvailable: queryBool(r, "isAvailable"),
		IsFeatured:  queryBool(r, "isFeatured"),
		Search:      r.URL.Query().Get("search"),
	}
	if !isStaff(r) {
		available := true
		q.IsAvailable = &available
	}

	items, page, err := a.menu.ListItems(r.Context(), q)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":      items,
		"pagination": page,
	})
}

func (a *API) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := a.menu.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	if !item.IsAvailable && !isStaff(r) {
		a.writeError(w, r, http.StatusNotFound, "Resource not found", "unavailable item hidden from public")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type itemRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	PriceCents  *int64   `json:"priceCents,omitempty"`
	Image       string   `json:"image,omitempty"`
	CategoryID  *string  `json:"categoryId,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
	Allergens   []string `json:"allergens,omitempty"`
	IsAvailable *bool    `json:"isAvailable,omitempty"`
	IsFeatured  *bool    `json:"isFeatured,omitempty"`
	SortOrder   *int     `json:"sortOrder,omitempty"`
}

func (req itemRequest) input() menu.ItemInput {
	return menu.ItemInput{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Image:       req.Image,
		CategoryID:  req.CategoryID,
		Ingredients: req.Ingredients,
		Allergens:   req.Allergens,
		IsAvailable: req.IsAvailable,
		IsFeatured:  req.IsFeatured,
		SortOrder:   req.SortOrder,
	}
}

func (a *API) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	item, err := a.menu.CreateItem(r.Context(), req.input())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (a *API) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	item, err := a.menu.UpdateItem(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := a.menu.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Item deleted successfully"})
}

type bulkUpdateRequest struct {
	ItemIDs     []string `json:"itemIds"`
	IsAvailable *bool    `json:"isAvailable,omitempty"`
	IsFeatured  *bool    `json:"isFeatured,omitempty"`
	CategoryID  *string  `json:"categoryId,omitempty"`
}

func (a *API) handleBulkUpdateItems(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	updated, err := a.menu.BulkUpdateItems(r.Context(), req.ItemIDs, menu.ItemPatch{
		IsAvailable: req.IsAvailable,
		IsFeatured:  req.IsFeatured,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

type bulkDeleteRequest struct {
	ItemIDs []string `json:"itemIds"`
}

func (a *API) handleBulkDeleteItems(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	deleted, err := a.menu.BulkDeleteItems(r.Context(), req.ItemIDs)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}

func queryBool(r *http.Request, key string) *bool {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

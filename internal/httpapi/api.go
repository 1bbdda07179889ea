package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/upmenu/menu-api/internal/auth"
	"github.com/upmenu/menu-api/internal/menu"
	"github.com/upmenu/menu-api/internal/obs"
	"github.com/upmenu/menu-api/internal/ratelimit"
)

// API is the HTTP layer: thin route handlers delegating to the auth and
// menu services.
type API struct {
	auth    *auth.Service
	menu    *menu.Service
	tokens  *auth.TokenManager
	limiter ratelimit.Limiter

	db          *sql.DB
	version     string
	devMode     bool
	corsOrigins []string
	csrfEnabled bool
	rateWindow  time.Duration
}

// Options configures the API.
type Options struct {
	Auth            *auth.Service
	Menu            *menu.Service
	Tokens          *auth.TokenManager
	Limiter         ratelimit.Limiter
	DB              *sql.DB
	Version         string
	DevMode         bool
	CORSOrigins     []string
	CSRFEnabled     bool
	RateLimitWindow time.Duration
}

// New wires the API from its collaborators.
func New(opts Options) *API {
	a := &API{
		auth:        opts.Auth,
		menu:        opts.Menu,
		tokens:      opts.Tokens,
		limiter:     opts.Limiter,
		db:          opts.DB,
		version:     opts.Version,
		devMode:     opts.DevMode,
		corsOrigins: opts.CORSOrigins,
		csrfEnabled: opts.CSRFEnabled,
		rateWindow:  opts.RateLimitWindow,
	}
	if a.limiter == nil {
		a.limiter = ratelimit.Unlimited{}
	}
	if a.rateWindow <= 0 {
		a.rateWindow = time.Minute
	}
	return a
}

// Router builds the full route tree with the middleware chain applied.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-CSRF-Token", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           600,
	}))
	r.Use(MaxBodyBytes(1 << 20))
	r.Use(Logging)
	r.Use(a.RateLimit)
	if a.csrfEnabled {
		r.Use(a.CSRF)
	}

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Handle("/metrics", obs.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/info", a.handleInfo)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/csrf", a.handleIssueCSRFToken)
			r.Post("/login", a.handleLogin)
			r.Post("/refresh", a.handleRefresh)
			r.Post("/forgot-password", a.handleForgotPassword)
			r.Post("/reset-password", a.handleResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(a.Authenticate)
				r.Post("/logout", a.handleLogout)
				r.Post("/change-password", a.handleChangePassword)
				r.Get("/profile", a.handleGetProfile)
				r.Put("/profile", a.handleUpdateProfile)
				r.Get("/sessions", a.handleListSessions)
			})
		})

		r.Route("/admin/users", func(r chi.Router) {
			r.Use(a.Authenticate, a.AdminOnly)
			r.Get("/", a.handleListUsers)
			r.Post("/", a.handleCreateUser)
			r.Get("/{id}", a.handleGetUser)
			r.Put("/{id}", a.handleUpdateUser)
			r.Delete("/{id}", a.handleDeleteUser)
		})

		r.Route("/menu", func(r chi.Router) {
			// Public reads; identity is optional and only widens visibility.
			r.Group(func(r chi.Router) {
				r.Use(a.OptionalAuthenticate)
				r.Get("/categories", a.handleListCategories)
				r.Get("/categories/{id}", a.handleGetCategory)
				r.Get("/items", a.handleListItems)
				r.Get("/items/{id}", a.handleGetItem)
			})

			// Writes require at least MANAGER.
			r.Group(func(r chi.Router) {
				r.Use(a.Authenticate, a.ManagerOrAdmin)
				r.Post("/categories", a.handleCreateCategory)
				r.Put("/categories/{id}", a.handleUpdateCategory)
				r.Delete("/categories/{id}", a.handleDeleteCategory)
				r.Post("/items", a.handleCreateItem)
				r.Put("/items/{id}", a.handleUpdateItem)
				r.Delete("/items/{id}", a.handleDeleteItem)
				r.Patch("/items/bulk", a.handleBulkUpdateItems)
				r.Delete("/items/bulk", a.handleBulkDeleteItems)
			})
		})
	})

	return obs.Instrument(routePattern, r)
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "menu-api",
		"version": a.version,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "menu-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/upmenu/menu-api/internal/auth"
	"github.com/upmenu/menu-api/internal/config"
	"github.com/upmenu/menu-api/internal/httpapi"
	"github.com/upmenu/menu-api/internal/menu"
	"github.com/upmenu/menu-api/internal/notify"
	"github.com/upmenu/menu-api/internal/obs"
	"github.com/upmenu/menu-api/internal/ratelimit"
)

var version = "0.3.0"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.SetBuildInfo(version)

	if cfg.DatabaseURL == "" {
		log.Fatal("MENU_API_PG_DSN is required")
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTRefreshSecret,
		auth.WithAccessTTL(cfg.AccessTokenTTL),
		auth.WithRefreshTTL(cfg.RefreshTokenTTL),
	)
	if err != nil {
		log.Fatalf("token manager: %v", err)
	}

	var notifier auth.Notifier = notify.NewLogNotifier()
	if apiURL := os.Getenv("MENU_API_MAIL_URL"); apiURL != "" {
		notifier = notify.NewMailer(apiURL,
			os.Getenv("MENU_API_MAIL_KEY"),
			os.Getenv("MENU_API_MAIL_FROM"),
			os.Getenv("MENU_API_RESET_URL"),
		)
	}

	authSvc, err := auth.NewService(
		auth.NewPGUserStore(db),
		auth.NewPGSessionStore(db),
		auth.NewPGResetTokenStore(db),
		auth.NewPGAuditStore(db),
		tokens,
		auth.WithNotifier(notifier),
		auth.WithBcryptCost(cfg.BcryptCost),
		auth.WithSessionTTL(cfg.SessionTTL),
		auth.WithResetTokenTTL(cfg.ResetTokenTTL),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	menuSvc, err := menu.NewService(menu.NewPGCategoryStore(db), menu.NewPGItemStore(db))
	if err != nil {
		log.Fatalf("menu service: %v", err)
	}

	api := httpapi.New(httpapi.Options{
		Auth:        authSvc,
		Menu:        menuSvc,
		Tokens:      tokens,
		Limiter:     ratelimit.NewTokenBucket(cfg.RateLimitRequests, cfg.RateLimitWindow),
		DB:              db,
		Version:         version,
		DevMode:         cfg.DevMode,
		CORSOrigins:     cfg.CORSOrigins,
		CSRFEnabled:     cfg.EnableCSRF,
		RateLimitWindow: cfg.RateLimitWindow,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting menu-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}

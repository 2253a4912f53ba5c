package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/meera/digicard/internal/config"
	"github.com/meera/digicard/internal/handler"
	"github.com/meera/digicard/internal/repository"
	"github.com/meera/digicard/internal/service"
	"github.com/meera/digicard/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := sqlx.Connect("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := repository.Migrate(context.Background(), db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	slog.Info("database connected")

	files, err := storage.NewDiskStore(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("init upload storage: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	cardRepo := repository.NewCardRepository(db)

	authSvc := service.NewAuthService(userRepo, service.AuthConfig{
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		JWTSecret:          cfg.JWTSecret,
		FrontendURL:        cfg.FrontendURL,
	})
	cardSvc := service.NewCardService(cardRepo, files)

	authHandler := handler.NewAuthHandler(authSvc)
	cardHandler := handler.NewCardHandler(cardSvc)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewAppValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	e.Use(echomw.RequestID())
	e.Use(handler.RequestLogger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentType},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/health", func(c echo.Context) error {
		return handler.JSON(c, http.StatusOK, map[string]string{"status": "ok"})
	})
	e.Static("/uploads", cfg.UploadDir)

	api := e.Group("/api/v1")

	// Auth routes (public)
	api.GET("/auth/google", authHandler.GoogleRedirect)
	api.GET("/auth/google/callback", authHandler.GoogleCallback)
	api.POST("/auth/refresh", authHandler.Refresh)

	// Public share pages
	api.GET("/cards/:id", cardHandler.View)
	api.GET("/cards/:id/vcard", cardHandler.Export)

	// Protected routes
	me := api.Group("/me", handler.JWTAuth(authSvc))
	me.GET("/cards", cardHandler.Form)
	me.POST("/cards", cardHandler.Save)
	me.PATCH("/cards/:id/label", cardHandler.UpdateLabel)
	me.PUT("/cards/:id/image/:kind", cardHandler.UpdateImage)
	me.DELETE("/cards/:id", cardHandler.Delete)

	authMe := api.Group("/auth", handler.JWTAuth(authSvc))
	authMe.GET("/me", authHandler.Me)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		errCh <- e.Start(fmt.Sprintf(":%d", cfg.Port))
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

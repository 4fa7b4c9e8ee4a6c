package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"animehub/internal/auth"
	"animehub/internal/catalog"
	"animehub/internal/events"
	"animehub/internal/media"
	"animehub/internal/reconcile"
	"animehub/internal/relations"
	"animehub/internal/schedule"
	"animehub/pkg/database"
	"animehub/pkg/models"
	"animehub/pkg/utils"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal("db migrate failed", zap.Error(err))
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := events.NewHub()
	router.GET("/ws", events.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": hub.Stats().Clients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": hub.Stats().Clients,
		})
	})

	// Core wiring: store, relation graph, catalog client, reconcile engine
	repo := media.NewRepo(db)
	graph := relations.NewManager(repo, logger.Named("relations"))
	client := catalog.NewClient()
	engine := reconcile.NewEngine(repo, client, logger.Named("reconcile"))
	handler := media.NewHandler(repo, graph, engine, hub)

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Public reads
	handler.RegisterMediaRoutes(router.Group("/anime"), models.KindAnime)
	handler.RegisterMediaRoutes(router.Group("/manga"), models.KindManga)

	// Mutations behind auth
	animeAdmin := router.Group("/anime")
	animeAdmin.Use(auth.AuthMiddleware(tokenSvc))
	handler.RegisterMediaAdminRoutes(animeAdmin, models.KindAnime)

	mangaAdmin := router.Group("/manga")
	mangaAdmin.Use(auth.AuthMiddleware(tokenSvc))
	handler.RegisterMediaAdminRoutes(mangaAdmin, models.KindManga)

	charAdmin := router.Group("/characters")
	charAdmin.Use(auth.AuthMiddleware(tokenSvc))
	handler.RegisterCharacterRoutes(router.Group("/characters"), charAdmin)

	protected := router.Group("/users")
	protected.Use(auth.AuthMiddleware(tokenSvc))
	protected.GET("/me", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{
			"id":       claims.UserID,
			"username": claims.Username,
		})
	})

	// Background sweeps run in-process; the websocket hub receives their
	// summaries as the injected observer.
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()

	scheduler := schedule.New(utils.LoadScheduleConfig(), repo, engine, graph, hub, logger.Named("schedule"))
	if err := scheduler.Start(schedCtx); err != nil {
		logger.Fatal("scheduler start failed", zap.Error(err))
	}

	httpSrv := &http.Server{
		Addr:    ":8080",
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API server listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	logger.Info("shutting down")
	schedCancel()
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", zap.Error(err))
	}
	logger.Info("stopped")
}

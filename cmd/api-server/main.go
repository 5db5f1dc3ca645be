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

	"bookarr/internal/auth"
	"bookarr/internal/catalog"
	"bookarr/internal/events"
	"bookarr/internal/importer"
	"bookarr/internal/provider"
	"bookarr/internal/requests"
	"bookarr/internal/search"
	"bookarr/internal/settings"
	"bookarr/internal/shelf"
	"bookarr/pkg/database"
	"bookarr/pkg/utils"
)

func main() {
	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	router := gin.Default()

	// Optional: avoid "trusted all proxies" warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := events.NewHub()
	router.GET("/ws", hub.ServeWS())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": stats.WSClients,
		})
	})

	// Settings store backs every provider adapter; configuration changes
	// take effect without a restart.
	store := settings.NewStore(db)

	readarr := provider.NewReadarr(store)
	jackett := provider.NewJackett(store)
	prowlarr := provider.NewProwlarr(store)
	kavita := provider.NewKavita(store)

	// Search (public)
	aggregator := search.NewAggregator(readarr, jackett, prowlarr)
	enricher := search.NewEnricher(kavita)
	searchHandler := search.NewHandler(aggregator, enricher, kavita)
	searchHandler.RegisterRoutes(router.Group("/search"))

	// Catalog (public)
	catalogRepo := catalog.NewRepo(db)
	catalogHandler := catalog.NewHandler(catalogRepo)
	catalogHandler.RegisterRoutes(router.Group("/library"))

	// Auth
	tokenSvc := auth.NewTokenService(utils.LoadAuthConfig())
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Protected routes
	protected := router.Group("/users")
	protected.Use(auth.AuthMiddleware(tokenSvc))

	protected.GET("/me", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{
			"id":       claims.UserID,
			"username": claims.Username,
			"email":    claims.Email,
		})
	})

	// Shelf (protected)
	shelfRepo := shelf.NewRepo(db)
	shelfHandler := shelf.NewHandler(shelfRepo, hub)
	shelfHandler.RegisterRoutes(protected)

	// Requests (protected)
	requestRepo := requests.NewRepo(db)
	requestHandler := requests.NewHandler(requestRepo, readarr)
	requestGroup := router.Group("/requests")
	requestGroup.Use(auth.AuthMiddleware(tokenSvc))
	requestHandler.RegisterRoutes(requestGroup)

	// Background reconciliation against the Readarr library.
	imp := &importer.Importer{
		Catalog:  catalogRepo,
		Settings: store,
		Source:   readarr,
		Updater:  requests.NewUpdater(requestRepo, catalogRepo),
		Events:   hub,
	}
	scheduler := importer.NewScheduler(imp, store)
	scheduler.Start(context.Background())

	httpSrv := &http.Server{
		Addr:    utils.ListenAddr(),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API server listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}

	log.Println("server stopped")
}

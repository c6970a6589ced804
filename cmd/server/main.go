package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"knowledgebase/auth"
	"knowledgebase/internal/analytics"
	"knowledgebase/internal/article"
	"knowledgebase/internal/config"
	"knowledgebase/internal/db"
	"knowledgebase/internal/middleware"
	"knowledgebase/internal/user"
	"knowledgebase/internal/worker"
	"knowledgebase/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Connect to database
	db.ConnectDb()
	defer db.CloseDb()

	// Migrate database schema
	db.Migrate()

	// Seed database with initial data (for development)
	db.SeedData()

	// Initialize Redis cache
	cache := redis.NewCache(config.AppConfig.RedisAddress)

	// Background lane for graph-sync retries
	pool := worker.NewWorkerPool(4)
	defer pool.Shutdown()

	// Analytics collector (optional)
	var events analytics.Emitter = analytics.Noop{}
	if config.AppConfig.AnalyticsAddress != "" {
		events = analytics.NewClient(config.AppConfig.AnalyticsAddress)
	}

	// Initialize repositories
	userRepo := user.NewRepository(db.AppDb)
	articleRepo := article.NewRepository(db.AppDb)

	// Initialize services
	userService := user.NewService(userRepo)
	linkGraph := article.NewLinkGraph(articleRepo, articleRepo)
	articleService := article.NewService(
		articleRepo,
		linkGraph,
		cache,
		pool,
		events,
		config.AppConfig.GraphSyncRetries,
	)

	// Initialize handlers
	userHandler := user.NewHandler(userService, cache)
	articleHandler := article.NewHandler(articleService)

	// Initialize Gin router
	router := gin.Default()
	router.Use(middleware.ErrorHandler())

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}

	if config.AppConfig.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	} else {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{config.AppConfig.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))

	authRequired := auth.AuthMiddleWare(cache)

	// User routes
	router.POST("/register", userHandler.Register)
	router.POST("/login", userHandler.Login)
	router.DELETE("/logout", authRequired, userHandler.Logout)
	router.GET("/profile", authRequired, userHandler.GetProfile)

	// Article routes
	router.POST("/articles", authRequired, articleHandler.Create)
	router.GET("/articles", authRequired, articleHandler.List)
	router.GET("/articles/suggest", authRequired, articleHandler.SuggestTitles)
	router.GET("/articles/slug/:slug", authRequired, articleHandler.ShowBySlug)
	router.GET("/articles/:id", authRequired, articleHandler.Show)
	router.PUT("/articles/:id", authRequired, articleHandler.Update)
	router.DELETE("/articles/:id", authRequired, articleHandler.Delete)

	// Link graph routes
	router.GET("/articles/:id/links", authRequired, articleHandler.ListLinks)
	router.GET("/articles/:id/backlinks", authRequired, articleHandler.ListBacklinks)

	// Version routes
	router.GET("/articles/:id/versions", authRequired, articleHandler.ListVersions)
	router.GET("/articles/:id/versions/:versionId/diff", authRequired, articleHandler.DiffVersion)
	router.POST("/articles/:id/versions/:versionId/revert", authRequired, articleHandler.Revert)

	// Server configuration
	serverPort := config.AppConfig.ServerPort
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		log.Printf("Server listening on port %s", serverPort)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Println("Server shutdown error:", err)
	}

	<-ctx.Done()
	log.Println("Server shutdown complete")
}

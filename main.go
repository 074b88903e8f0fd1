// File: /main.go
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
	"github.com/go-chi/cors"
	"gorm.io/gorm/logger"

	"tourbook-api/config"
	"tourbook-api/database"
	"tourbook-api/jobs"
	"tourbook-api/middleware"
	"tourbook-api/routes"
	"tourbook-api/services"
	"tourbook-api/utils"
	"tourbook-api/views"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logLevel := logger.Info
	if cfg.IsProduction() {
		logLevel = logger.Warn
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := database.Initialize(cfg.DBDriver, cfg.DatabaseURL, logLevel)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	if cfg.SeedData {
		if err := database.SeedData(db, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			log.Printf("Warning: Failed to seed database: %v", err)
		}
	}

	if err := utils.RegisterValidators(); err != nil {
		log.Fatal("Failed to register validators:", err)
	}

	pages, err := views.Load()
	if err != nil {
		log.Fatal("Failed to parse templates:", err)
	}

	router := gin.New()
	router.SetHTMLTemplate(pages)
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SecurityHeaders())

	emailService := services.NewEmailService(cfg)
	payments := services.NewHostedCheckout(cfg.PaymentCheckoutURL)
	routes.SetupRoutes(router, db, cfg, emailService, payments)

	handler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	})(router)

	sweepJob := jobs.NewLedgerSweepJob(db, cfg.LedgerSweepInterval)
	sweepJob.Start()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Starting Tourbook API server on port %s", cfg.Port)
		log.Printf("Health check available at: http://localhost:%s/ping", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	sweepJob.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charityfund/backend/docs"
	"github.com/charityfund/backend/internal/config"
	"github.com/charityfund/backend/internal/database"
	"github.com/charityfund/backend/internal/logging"
	mW "github.com/charityfund/backend/internal/middleware"
	"github.com/charityfund/backend/internal/services"
	"github.com/rs/zerolog/log"
)

// @title Charity Fund API
// @version 1.0
// @description Donations are allocated to charity projects in the order both were created
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	config.Load(".env")
	serverCfg := config.LoadServerConfig()
	logging.Setup(serverCfg.LogLevel, serverCfg.LogPretty)

	docs.SwaggerInfo.Host = "localhost:" + serverCfg.Port

	db := database.InitDatabase(context.Background())
	defer db.Close()

	if serverCfg.Migrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	mW.InitAuthMiddleware(redisClient, db)

	allocationService := services.NewAllocationService(db, redisClient)
	authService := services.NewAuthService(db, redisClient)

	if su := config.LoadSuperuserConfig(); su.Enabled() {
		if err := authService.EnsureSuperuser(context.Background(), su.Email, su.Password); err != nil {
			log.Fatal().Err(err).Msg("Failed to create superuser")
		}
	}

	// Donations or projects left unfunded by a crash get picked up here.
	if _, err := allocationService.Sweep(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Startup sweep failed")
	}

	r := newRouter(routes{
		auth:       authService,
		allocation: allocationService,
		projects:   services.NewCharityProjectService(db, allocationService),
		donations:  services.NewDonationService(db, allocationService),
		receipts:   services.NewReceiptService(db, redisClient),
		swaggerURL: "http://localhost:" + serverCfg.Port + "/swagger/doc.json",
	})

	server := &http.Server{
		Addr:         ":" + serverCfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

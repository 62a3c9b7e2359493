package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pulsohq/pulso/internal/api"
	"github.com/pulsohq/pulso/internal/api/handlers"
	"github.com/pulsohq/pulso/internal/batch"
	"github.com/pulsohq/pulso/internal/engine"
	"github.com/pulsohq/pulso/internal/source"
	"github.com/pulsohq/pulso/pkg/config"
	"github.com/pulsohq/pulso/pkg/database"
	"github.com/pulsohq/pulso/pkg/logger"
	"github.com/pulsohq/pulso/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                 - Health check
  GET  /api/records            - Fetch a weekly performance record
  POST /api/recompute          - Recompute one venue-week (or all venues)
  POST /api/recompute/ensure   - Create an empty weekly row

Example:
  go run ./cmd/pulso api
  go run ./cmd/pulso api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Pulso API Server ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	log.Info("Connected to database")

	// 4. Connect to Redis (no-op client when disabled)
	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	cache := redis.NewCache(redisClient, "pulso")

	// 5. Build the recompute engine
	repo := engine.NewRepository(db.Pool)
	reader := source.NewPGReader(db.Pool, log)
	orch := engine.NewOrchestrator(repo, reader, engine.DefaultConfig(), log)
	driver := batch.NewDriver(orch, batch.Config{
		GroupSize:  cfg.Batch.GroupSize,
		GroupDelay: cfg.Batch.GroupDelay,
	}, log)

	// 6. Create handlers and router
	recomputeHandler := handlers.NewRecomputeHandler(orch, driver, repo, log)
	recordsHandler := handlers.NewRecordsHandler(repo, cache, cfg.Redis.TTL, log)
	router := api.NewRouter(recomputeHandler, recordsHandler, log)

	// 7. Start server with graceful shutdown
	server := api.New(cfg, log, router)
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\nServer running on http://localhost:%s\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

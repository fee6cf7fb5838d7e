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

	"go.uber.org/zap"

	"logbook.app/backend/internal/api"
	"logbook.app/backend/internal/config"
	"logbook.app/backend/internal/core"
	"logbook.app/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer dbStore.Close()

	// Initialize LLM service
	llmService, err := core.NewLLMService(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize LLM service", zap.Error(err))
	}
	defer llmService.Close()

	// Wire the domain services
	resolver := core.NewDateResolver(llmService)
	logService := core.NewLogService(dbStore)
	chatService := core.NewChatService(dbStore)
	agentService := core.NewAgentService(dbStore, resolver, chatService, llmService, logger)

	apiHandler := api.NewAPIHandler(dbStore, logService, chatService, agentService, []byte(cfg.JWTSecret), logger)
	router := api.NewRouter(apiHandler, logger)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // model calls can take time
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", serverAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not listen", zap.String("addr", serverAddr), zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting gracefully")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "DEBUG" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

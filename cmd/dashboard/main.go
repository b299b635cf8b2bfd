package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"trading-dashboard-go/internal/api"
	"trading-dashboard-go/internal/config"
	"trading-dashboard-go/internal/dashboard"
	"trading-dashboard-go/internal/feed"
	"trading-dashboard-go/internal/logger"
	"trading-dashboard-go/internal/session"
	"trading-dashboard-go/internal/store"

	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Open the session database and restore any persisted token.
	sessions, err := session.Open(cfg.Session.DSN)
	if err != nil {
		log.Fatal("Failed to open session store", zap.Error(err))
	}

	holder := session.NewHolder()
	if token, err := sessions.Load(); err != nil {
		log.Warn("Failed to restore session token", zap.Error(err))
	} else if token != "" {
		holder.SetToken(token)
		log.Info("Restored persisted session token")
	}

	// Wire the sync engine: gateway, store, feed, service.
	gateway := api.NewClient(&cfg.API, holder, sessions, log)
	stateStore := store.New(log)
	feedClient := feed.NewClient(&cfg.Feed, log)
	service := dashboard.NewService(log, gateway, feedClient, stateStore, holder)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// A restored token resumes the session: full REST snapshot plus the
	// push feed. A rejected token just means the user logs in again.
	if holder.Authenticated() {
		if err := service.Resume(ctx); err != nil {
			log.Warn("Failed to resume session", zap.Error(err))
		}
	}

	// Setup the local dashboard HTTP API
	mux := http.NewServeMux()
	apiHandler := NewAPIHandler(log, service)
	apiHandler.Register(mux)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		feedClient.Disconnect()
		if err := server.Shutdown(context.Background()); err != nil {
			log.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Starting dashboard server", zap.String("address", addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Dashboard server failed", zap.Error(err))
	}

	log.Info("Dashboard has been shut down.")
}

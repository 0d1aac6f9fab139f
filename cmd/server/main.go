package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duraspace/duplication-policy-manager/internal/api"
	"github.com/duraspace/duplication-policy-manager/internal/api/middleware"
	"github.com/duraspace/duplication-policy-manager/internal/auth"
	"github.com/duraspace/duplication-policy-manager/internal/config"
	"github.com/duraspace/duplication-policy-manager/internal/durastore"
	"github.com/duraspace/duplication-policy-manager/internal/service"
	"github.com/duraspace/duplication-policy-manager/internal/storage/sql"
	"github.com/duraspace/duplication-policy-manager/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create data directory if needed (for SQLite)
	if cfg.Database.Driver == "sqlite3" {
		if err := os.MkdirAll("data", 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	// Initialize the version history store
	history, err := sql.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer history.Close()

	// Each session gets its own gateway bound to its credentials, its own
	// entity store, and an edit service sharing the version history.
	newGateway := func(creds *auth.Credentials) durastore.Gateway {
		if cfg.UseFileShim() {
			return durastore.NewFileShim(cfg.Durastore.FileShim)
		}
		return durastore.NewClient(durastore.Config{
			ServiceDomain: cfg.Durastore.ServiceDomain,
			APIRoot:       cfg.Durastore.APIRoot,
		}, creds)
	}
	newService := func(creds *auth.Credentials) *service.PolicyService {
		return service.NewPolicyService(store.NewEntityStore(newGateway(creds)), history)
	}

	// The credential probe verifies a login by listing accounts through a
	// gateway bound to the candidate credentials.
	manager := auth.NewManager(func(ctx context.Context, creds *auth.Credentials) error {
		_, err := newGateway(creds).ListAccounts(ctx)
		return err
	}, cfg.Durastore.PolicyPrefix)

	if cfg.UseFileShim() {
		log.Printf("Using file shim for durastore backend: %s", cfg.Durastore.FileShim)
		if err := os.MkdirAll(cfg.Durastore.FileShim, 0755); err != nil {
			log.Fatalf("Failed to create file shim directory: %v", err)
		}
	}

	registry := middleware.NewSessionRegistry(cfg.Session.Duration)
	router := api.NewRouter(manager, registry, newService)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Starting Duplication Policy Manager on http://%s", cfg.Server.Addr())

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

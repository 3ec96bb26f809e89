// main is the entry point of the Student Management API.
//
// STARTUP SEQUENCE:
//  1. Load configuration (.env, optional YAML file, environment)
//  2. Initialise the logger
//  3. Open the storage backend (MongoDB or SQLite)
//  4. Prepare the upload directory and register all HTTP routes
//  5. Start the HTTP server in a separate goroutine
//  6. Block until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, then exit
//
// RUNNING THE SERVER:
//
//	MONGO_URI=mongodb://localhost:27017/school PORT=8080 go run ./cmd/students-api
//
// or with a config file:
//
//	go run ./cmd/students-api --config=config/local.yaml
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aanand-mishra/student-management-api/internal/config"
	"github.com/aanand-mishra/student-management-api/internal/http/router"
	"github.com/aanand-mishra/student-management-api/internal/storage"
	"github.com/aanand-mishra/student-management-api/internal/storage/mongodb"
	"github.com/aanand-mishra/student-management-api/internal/storage/sqlite"
	"github.com/aanand-mishra/student-management-api/internal/upload"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting students-api",
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.Storage.Driver),
	)

	// A database that cannot be reached is logged, not fatal: the server
	// still starts and requests fail at the store layer until it is fixed.
	store := openStorage(cfg, log)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			log.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	uploads, err := upload.New(cfg.UploadDir)
	if err != nil {
		log.Error("failed to prepare upload dir", slog.String("error", err.Error()))
		os.Exit(1)
	}

	server := &http.Server{
		Addr:    cfg.HTTPServer.ListenAddr(),
		Handler: router.New(store, uploads, log),

		// No WriteTimeout: large uploads on slow links would be cut off.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server started", slog.String("address", server.Addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		return
	}

	log.Info("server stopped gracefully")
}

// openStorage opens the configured backend. It never fails: a backend
// that cannot be opened is replaced by storage.Unavailable.
func openStorage(cfg *config.Config, log *slog.Logger) storage.Storage {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		store storage.Storage
		err   error
	)
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		store, err = sqlite.New(cfg.Storage.Path)
	default:
		store, err = mongodb.New(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
	}
	if err != nil {
		log.Error("database connection failed", slog.String("error", err.Error()))
		return storage.Unavailable{Err: err}
	}

	if err := store.Ping(ctx); err != nil {
		log.Error("database connection failed", slog.String("error", err.Error()))
		return store
	}

	log.Info("database connected")
	return store
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case "staging":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

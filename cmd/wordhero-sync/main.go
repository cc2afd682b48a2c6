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

	"wordhero/internal/auth"
	"wordhero/internal/config"
	"wordhero/internal/connectivity"
	"wordhero/internal/database"
	"wordhero/internal/handlers"
	"wordhero/internal/repository"
	"wordhero/internal/scheduler"
	"wordhero/internal/security"
	"wordhero/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Identity of the student this agent syncs for
	identity, err := auth.ParseToken(cfg.JWTSecret, cfg.Token)
	if err != nil {
		log.Fatalf("Failed to read WORDHERO_TOKEN: %v", err)
	}
	log.Printf("Syncing for %s (%s)", identity.UserID, identity.Role)
	if !identity.IsStudent() {
		log.Println("Warning: token is not a student's, POST /sessions will be refused")
	}

	// Local cache, memory-only when the file cannot be opened
	cache, err := repository.OpenLocalCacheOrMemory(ctx, cfg.CachePath)
	if err != nil {
		log.Fatalf("Failed to open local cache: %v", err)
	}
	defer cache.Close()
	if cache.Degraded() {
		log.Println("Warning: running with a memory-only cache, queued results will not survive a restart")
	}
	if previous, err := cache.ClaimOwner(ctx, identity.UserID); err != nil {
		log.Printf("Warning: failed to record cache owner: %v", err)
	} else if previous != "" && previous != identity.UserID {
		log.Printf("Cache was last used by %s, their queued results will still be synced", previous)
	}

	// Remote document store (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithType(cfg.DatabaseType, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize remote store: %v", err)
	}
	defer db.Close()

	sqlStore, err := repository.NewSQLRemoteStore(ctx, db)
	if err != nil {
		log.Fatalf("Failed to prepare remote store: %v", err)
	}
	store := repository.NewRetryingRemoteStore(sqlStore, repository.RetryPolicy{
		MaxAttempts: cfg.RemoteMaxAttempts,
		Backoff:     repository.ExponentialBackoff(cfg.RemoteBackoff, 8*cfg.RemoteBackoff),
	})
	log.Printf("Remote store connected (type: %s)", cfg.DatabaseType)

	monitor := connectivity.NewMonitor(store.Ping, cfg.ProbeInterval)

	// Initialize services
	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.Debug)
	if err != nil {
		log.Printf("Warning: certificate emails disabled: %v", err)
		emailService = nil
	}

	opts := []service.ProgressOption{
		service.WithSnapshots(cache),
		service.WithDefaultTeacherName(cfg.DefaultTeacherName),
		service.WithMaxConflictRetries(cfg.MaxConflictRetries),
		service.WithDebug(cfg.Debug),
	}
	if emailService != nil {
		opts = append(opts, service.WithCertificateNotifier(emailService))
	}
	progressService := service.NewProgressService(store, opts...)
	engine := service.NewSyncEngine(progressService, cache, monitor, cfg.SyncTimeout)
	wordListService := service.NewWordListService(store, cache, monitor)
	profileService := service.NewProfileService(store, cache, monitor)
	selector := service.NewWordSelector(cache)

	// Drain on every reconnect, and retry periodically while online
	stopEngine := engine.Start(ctx)
	defer stopEngine()
	monitor.Start(ctx)

	jobs := scheduler.New(ctx, engine, wordListService, monitor)
	if err := jobs.Start(cfg.SyncRetryInterval, cfg.WordRefreshInterval); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer jobs.Stop()

	// Initialize handlers
	limiter := security.NewRateLimiter(6, time.Minute)
	go limiter.Run(ctx, time.Hour)

	middleware := handlers.NewMiddleware(cfg.JWTSecret, identity.UserID)
	statusHandler := handlers.NewStatusHandler(engine, cache, func(ctx context.Context) ([]service.StudentRank, error) {
		return service.Leaderboard(ctx, store)
	}, identity.UserID, limiter)
	gameHandler := handlers.NewGameHandler(wordListService, selector, engine, profileService, identity.UserID)

	mux := http.NewServeMux()
	statusHandler.Routes(mux, middleware)
	gameHandler.Routes(mux, middleware)

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	addr := "127.0.0.1:" + cfg.StatusPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SyncTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Status server starting on http://%s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Sync agent shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
	cancel()

	if pending, err := cache.CountPendingResults(shutdownCtx); err == nil && pending > 0 {
		log.Printf("%d results still pending, they will be synced on next start", pending)
	}
}

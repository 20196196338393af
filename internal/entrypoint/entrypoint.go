package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/krizium/kidsreading/internal/audiocache"
	"github.com/krizium/kidsreading/internal/config"
	"github.com/krizium/kidsreading/internal/connectivity"
	"github.com/krizium/kidsreading/internal/contentstore"
	"github.com/krizium/kidsreading/internal/covers"
	"github.com/krizium/kidsreading/internal/database"
	"github.com/krizium/kidsreading/internal/database/books"
	"github.com/krizium/kidsreading/internal/database/progress"
	http_controllers "github.com/krizium/kidsreading/internal/http"
	"github.com/krizium/kidsreading/internal/offline"
	"github.com/krizium/kidsreading/internal/remote"
	"github.com/krizium/kidsreading/internal/scheduler"
	"github.com/krizium/kidsreading/internal/tasks"
	"github.com/krizium/kidsreading/internal/tts"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Kids Reading App v%s", version)

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	booksRepo := books.NewRepository(db.DB)
	progressRepo := progress.NewRepository(db.DB)

	// Per-book offline content directory
	store, err := contentstore.NewStore(cfg.Offline.Dir)
	if err != nil {
		log.Fatalf("Failed to initialize offline content store: %v", err)
	}

	// Speech synthesis gateway and audio cache
	if cfg.TTS.BaseURL == "" {
		log.Printf("WARNING: TTS_BASE_URL is not set. Audio synthesis will fail until it is configured.")
	}
	synth := tts.NewHTTPSynthesizer(cfg.TTS.BaseURL, cfg.TTS.Voice, cfg.TTS.Timeout)
	audioCache, err := audiocache.NewCache(cfg.Audio.Dir, synth)
	if err != nil {
		log.Fatalf("Failed to initialize audio cache: %v", err)
	}
	speaker := tts.NewSpeaker(audioCache, tts.NopPlayer{})

	// Create cover cache for locally caching book covers
	coverCacheDir := filepath.Join(filepath.Dir(cfg.Database.Path), "covers")
	coverCache, err := covers.NewCache(coverCacheDir)
	if err != nil {
		log.Printf("WARNING: Failed to initialize cover cache: %v", err)
		coverCache = nil
	} else {
		log.Printf("Cover cache initialized at %s", coverCacheDir)
	}

	// Connectivity monitor: optimistic until the first probe settles
	monitor := connectivity.NewMonitor(cfg.Connectivity.ProbeURL, cfg.Connectivity.ProbeTimeout)
	{
		probeCtx, cancel := context.WithTimeout(context.Background(), cfg.Connectivity.ProbeTimeout)
		monitor.CheckNow(probeCtx)
		cancel()
	}
	log.Printf("Connectivity: connected=%v", monitor.IsConnected())

	remoteClient := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout, monitor)

	// The coordinator routes reads between remote, database and offline store
	var coordinatorCovers offline.CoverCache
	if coverCache != nil {
		coordinatorCovers = coverCache
	}
	coordinator := offline.NewCoordinator(
		remoteClient,
		booksRepo,
		store,
		progressRepo,
		audioCache,
		coordinatorCovers,
		monitor,
		cfg.Audio.PrecacheWorkers,
	)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		// Register task queues
		taskClient.Register(
			tasks.NewCacheBookQueue(coordinator),
			tasks.NewFlushProgressQueue(coordinator),
			tasks.NewSweepAudioQueue(coordinator),
		)

		// Start task workers in background
		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	// React to reconnects: flush locally recorded progress
	runCtx, runCancel := context.WithCancel(context.Background())
	go coordinator.Run(runCtx)

	// Periodic connectivity probes and audio cache sweeps
	probeScheduler := scheduler.NewConnectivityProbeScheduler(monitor, cfg.Connectivity.ProbeSchedule, cfg.Connectivity.ProbeTimeout)
	if err := probeScheduler.Start(runCtx); err != nil {
		log.Fatalf("Failed to start connectivity probe scheduler: %v", err)
	}
	sweepScheduler := scheduler.NewAudioSweepScheduler(coordinator, cfg.Sweep.Enabled, cfg.Sweep.Schedule)
	if err := sweepScheduler.Start(runCtx); err != nil {
		log.Fatalf("Failed to start audio sweep scheduler: %v", err)
	}

	// Build router configuration with all dependencies
	routerCfg := http_controllers.RouterConfig{
		Library:      coordinator,
		Progress:     coordinator,
		Offline:      coordinator,
		Database:     db,
		Speech:       speaker,
		Connectivity: monitor,
		CoverCache:   coverCache,
		TaskClient:   taskClient,
		Version:      version,
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		probeScheduler.Stop()
		sweepScheduler.Stop()
		runCancel()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}

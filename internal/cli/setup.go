package cli

import (
	"context"
	"fmt"

	"github.com/krizium/kidsreading/internal/audiocache"
	"github.com/krizium/kidsreading/internal/config"
	"github.com/krizium/kidsreading/internal/connectivity"
	"github.com/krizium/kidsreading/internal/contentstore"
	"github.com/krizium/kidsreading/internal/covers"
	"github.com/krizium/kidsreading/internal/database"
	"github.com/krizium/kidsreading/internal/database/books"
	"github.com/krizium/kidsreading/internal/database/progress"
	"github.com/krizium/kidsreading/internal/offline"
	"github.com/krizium/kidsreading/internal/remote"
	"github.com/krizium/kidsreading/internal/tts"
)

// appStack holds the wired services a command needs, plus the cleanup
// function that releases them.
type appStack struct {
	Coordinator *offline.Coordinator
	Monitor     *connectivity.Monitor
	Close       func()
}

// buildStack wires the same services the server uses, for one-shot
// command execution. The connectivity monitor is probed once before the
// stack is returned.
func buildStack(dbPath, offlineDir, audioDir string) (*appStack, error) {
	cfg := config.NewConfig()
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if offlineDir != "" {
		cfg.Offline.Dir = offlineDir
	}
	if audioDir != "" {
		cfg.Audio.Dir = audioDir
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store, err := contentstore.NewStore(cfg.Offline.Dir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize offline content store: %w", err)
	}

	synth := tts.NewHTTPSynthesizer(cfg.TTS.BaseURL, cfg.TTS.Voice, cfg.TTS.Timeout)
	audioCache, err := audiocache.NewCache(cfg.Audio.Dir, synth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audio cache: %w", err)
	}

	var coverCache offline.CoverCache
	if cache, err := covers.NewCache(config.DefaultCoversDir); err == nil {
		coverCache = cache
	}

	monitor := connectivity.NewMonitor(cfg.Connectivity.ProbeURL, cfg.Connectivity.ProbeTimeout)
	probeCtx, cancel := context.WithTimeout(context.Background(), cfg.Connectivity.ProbeTimeout)
	monitor.CheckNow(probeCtx)
	cancel()

	remoteClient := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout, monitor)

	coordinator := offline.NewCoordinator(
		remoteClient,
		books.NewRepository(db.DB),
		store,
		progress.NewRepository(db.DB),
		audioCache,
		coverCache,
		monitor,
		cfg.Audio.PrecacheWorkers,
	)

	return &appStack{
		Coordinator: coordinator,
		Monitor:     monitor,
		Close: func() {
			db.Close()
		},
	}, nil
}

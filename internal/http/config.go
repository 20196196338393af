package http

import (
	"github.com/krizium/kidsreading/internal/covers"
	"github.com/krizium/kidsreading/internal/database"
	"github.com/krizium/kidsreading/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. This replaces a long parameter list
// in NewRouter for better maintainability.
type RouterConfig struct {
	// Core dependencies
	Library  Library
	Progress ProgressTracker
	Offline  OfflineManager
	Database *database.Database

	// Speech synthesis (optional; speech endpoints are skipped when nil)
	Speech SpeechService

	// Connectivity state for the health endpoint
	Connectivity interface{ IsConnected() bool }

	// Cover caching
	CoverCache *covers.Cache

	// Task queue client (optional; offline caching enqueues through it)
	TaskClient *tasks.Client

	// Application info
	Version string
}

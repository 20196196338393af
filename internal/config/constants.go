package config

// Default paths for local storage
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./kidsreading.db"

	// DefaultOfflineDir is the default root directory for offline book content
	DefaultOfflineDir = "./offline-books"

	// DefaultAudioCacheDir is the default directory for cached word/sentence audio
	DefaultAudioCacheDir = "./audio-cache"

	// DefaultCoversDir is the default directory for cached cover images
	DefaultCoversDir = "./covers"
)

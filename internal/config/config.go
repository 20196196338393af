package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Remote
		Connectivity
		Offline
		Audio
		TTS
		Tasks
		Sweep
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Remote struct {
		BaseURL string        // Base URL of the catalog/progress API
		Timeout time.Duration // Per-request timeout
	}
	Connectivity struct {
		ProbeURL      string        // Health endpoint used for reachability checks
		ProbeTimeout  time.Duration // Hard cap on a single probe
		ProbeSchedule string        // Cron format: "* * * * *" = every minute
	}
	Offline struct {
		Dir string // Root directory for per-book offline content
	}
	Audio struct {
		Dir             string // Directory for cached audio artifacts
		PrecacheWorkers int    // Parallel synthesis calls during bulk pre-caching
	}
	TTS struct {
		BaseURL string
		Voice   string
		Timeout time.Duration
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Sweep struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Remote API defaults
	v.SetDefault("remote_base_url", "https://api.kidsreadingapp.com/api")
	v.SetDefault("remote_timeout", "10s")

	// Connectivity probe defaults
	v.SetDefault("connectivity_probe_url", "https://api.kidsreadingapp.com/health")
	v.SetDefault("connectivity_probe_timeout", "3s")
	v.SetDefault("connectivity_probe_schedule", "* * * * *") // Every minute

	// Offline storage defaults
	v.SetDefault("offline_dir", DefaultOfflineDir)
	v.SetDefault("audio_cache_dir", DefaultAudioCacheDir)
	v.SetDefault("audio_precache_workers", 4)

	// Speech synthesis defaults
	v.SetDefault("tts_base_url", "")
	v.SetDefault("tts_voice", "en-US-child-friendly")
	v.SetDefault("tts_timeout", "15s")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// Audio sweep defaults
	v.SetDefault("audio_sweep_enabled", false)
	v.SetDefault("audio_sweep_schedule", "0 3 * * *") // Daily at 03:00

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Remote: Remote{
			BaseURL: v.GetString("REMOTE_BASE_URL"),
			Timeout: v.GetDuration("REMOTE_TIMEOUT"),
		},
		Connectivity: Connectivity{
			ProbeURL:      v.GetString("CONNECTIVITY_PROBE_URL"),
			ProbeTimeout:  v.GetDuration("CONNECTIVITY_PROBE_TIMEOUT"),
			ProbeSchedule: v.GetString("CONNECTIVITY_PROBE_SCHEDULE"),
		},
		Offline: Offline{
			Dir: v.GetString("OFFLINE_DIR"),
		},
		Audio: Audio{
			Dir:             v.GetString("AUDIO_CACHE_DIR"),
			PrecacheWorkers: v.GetInt("AUDIO_PRECACHE_WORKERS"),
		},
		TTS: TTS{
			BaseURL: v.GetString("TTS_BASE_URL"),
			Voice:   v.GetString("TTS_VOICE"),
			Timeout: v.GetDuration("TTS_TIMEOUT"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Sweep: Sweep{
			Enabled:  v.GetBool("AUDIO_SWEEP_ENABLED"),
			Schedule: v.GetString("AUDIO_SWEEP_SCHEDULE"),
		},
	}
}

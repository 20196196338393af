package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/krizium/kidsreading/internal/config"
)

// SweepAudioCommand reclaims cached audio no longer referenced by any
// offline book.
type SweepAudioCommand struct {
	DatabasePath string
	OfflineDir   string
	AudioDir     string
}

// NewSweepAudioCommand creates a new SweepAudioCommand
func NewSweepAudioCommand() *SweepAudioCommand {
	return &SweepAudioCommand{}
}

// ParseFlags parses command line flags
func (cmd *SweepAudioCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sweep-audio", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local database file")
	fs.StringVar(&cmd.OfflineDir, "offline-dir", config.DefaultOfflineDir, "Root directory for offline book content")
	fs.StringVar(&cmd.AudioDir, "audio-dir", config.DefaultAudioCacheDir, "Directory for cached word audio")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sweep-audio [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Delete cached audio files that no offline book references anymore.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the command
func (cmd *SweepAudioCommand) Run() error {
	stack, err := buildStack(cmd.DatabasePath, cmd.OfflineDir, cmd.AudioDir)
	if err != nil {
		return err
	}
	defer stack.Close()

	removed, err := stack.Coordinator.SweepAudioCache()
	if err != nil {
		return fmt.Errorf("failed to sweep audio cache: %w", err)
	}

	fmt.Printf("Removed %d unreferenced audio files\n", removed)
	return nil
}

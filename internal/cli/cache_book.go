package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/krizium/kidsreading/internal/config"
)

// CacheBookCommand downloads a book for offline reading.
type CacheBookCommand struct {
	BookID       uint
	DatabasePath string
	OfflineDir   string
	AudioDir     string
}

// NewCacheBookCommand creates a new CacheBookCommand
func NewCacheBookCommand() *CacheBookCommand {
	return &CacheBookCommand{}
}

// ParseFlags parses command line flags
func (cmd *CacheBookCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("cache-book", flag.ExitOnError)

	var bookID uint64
	fs.Uint64Var(&bookID, "book", 0, "ID of the book to cache (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local database file")
	fs.StringVar(&cmd.OfflineDir, "offline-dir", config.DefaultOfflineDir, "Root directory for offline book content")
	fs.StringVar(&cmd.AudioDir, "audio-dir", config.DefaultAudioCacheDir, "Directory for cached word audio")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s cache-book -book <id> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Download a book's pages, cover and word audio so it can be read offline.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s cache-book -book 3\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if bookID == 0 {
		return fmt.Errorf("book ID required: use the -book flag")
	}
	cmd.BookID = uint(bookID)

	return nil
}

// Run executes the command
func (cmd *CacheBookCommand) Run() error {
	stack, err := buildStack(cmd.DatabasePath, cmd.OfflineDir, cmd.AudioDir)
	if err != nil {
		return err
	}
	defer stack.Close()

	if !stack.Monitor.IsConnected() {
		return fmt.Errorf("remote API is not reachable, caching needs connectivity")
	}

	fmt.Printf("Caching book %d for offline use...\n", cmd.BookID)
	if err := stack.Coordinator.MakeBookAvailableOffline(context.Background(), cmd.BookID); err != nil {
		return fmt.Errorf("failed to cache book %d: %w", cmd.BookID, err)
	}

	fmt.Printf("Book %d is now available offline\n", cmd.BookID)
	return nil
}

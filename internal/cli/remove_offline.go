package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/krizium/kidsreading/internal/config"
)

// RemoveOfflineCommand deletes a book's offline copy.
type RemoveOfflineCommand struct {
	BookID       uint
	DatabasePath string
	OfflineDir   string
	AudioDir     string
}

// NewRemoveOfflineCommand creates a new RemoveOfflineCommand
func NewRemoveOfflineCommand() *RemoveOfflineCommand {
	return &RemoveOfflineCommand{}
}

// ParseFlags parses command line flags
func (cmd *RemoveOfflineCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("remove-offline", flag.ExitOnError)

	var bookID uint64
	fs.Uint64Var(&bookID, "book", 0, "ID of the book to remove from offline storage (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local database file")
	fs.StringVar(&cmd.OfflineDir, "offline-dir", config.DefaultOfflineDir, "Root directory for offline book content")
	fs.StringVar(&cmd.AudioDir, "audio-dir", config.DefaultAudioCacheDir, "Directory for cached word audio")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s remove-offline -book <id> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Delete a book's offline pages and cover. Cached audio is kept and can\n")
		fmt.Fprintf(os.Stderr, "be reclaimed with the sweep-audio command.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
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
func (cmd *RemoveOfflineCommand) Run() error {
	stack, err := buildStack(cmd.DatabasePath, cmd.OfflineDir, cmd.AudioDir)
	if err != nil {
		return err
	}
	defer stack.Close()

	if err := stack.Coordinator.RemoveBookFromOffline(cmd.BookID); err != nil {
		return fmt.Errorf("failed to remove book %d from offline storage: %w", cmd.BookID, err)
	}

	fmt.Printf("Book %d removed from offline storage\n", cmd.BookID)
	return nil
}

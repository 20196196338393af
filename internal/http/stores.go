package http

import (
	"context"

	"github.com/krizium/kidsreading/internal/entities"
)

// Controllers declare the narrow interfaces they need; the offline
// coordinator satisfies all of them.

// Library provides read access to book content with offline fallback.
type Library interface {
	GetAllBooks(ctx context.Context) ([]entities.Book, error)
	GetBook(ctx context.Context, id uint) (*entities.Book, error)
	GetPage(ctx context.Context, bookID uint, pageNumber int) (*entities.Page, error)
}

// ProgressTracker records and reads per-user reading progress.
type ProgressTracker interface {
	GetProgress(userID, bookID uint) (*entities.ReadingProgress, error)
	RecentBooks(userID uint, limit int) ([]entities.BookProgress, error)
	UpdateProgress(ctx context.Context, userID, bookID uint, pageNumber, timeSpentSeconds int) (*entities.ReadingProgress, error)
}

// OfflineManager controls which books are cached for offline reading.
type OfflineManager interface {
	RemoveBookFromOffline(bookID uint) error
	OfflineBooks() ([]entities.Book, error)
}

// SpeechService speaks text aloud, cancelling any utterance in flight.
type SpeechService interface {
	Speak(ctx context.Context, text string) error
	Cancel()
}

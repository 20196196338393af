package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// BookCacher defines the offline caching operations tasks depend on.
type BookCacher interface {
	MakeBookAvailableOffline(ctx context.Context, bookID uint) error
}

// CacheBookTask downloads a book's pages, cover and word audio so it can
// be read without connectivity.
type CacheBookTask struct {
	BookID uint `json:"book_id"`
}

func (t CacheBookTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cache_book",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     15 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CacheBookProcessor creates a processor that caches one book for offline use.
func CacheBookProcessor(cacher BookCacher) backlite.QueueProcessor[CacheBookTask] {
	return func(ctx context.Context, task CacheBookTask) error {
		if err := cacher.MakeBookAvailableOffline(ctx, task.BookID); err != nil {
			return fmt.Errorf("cache book %d for offline use: %w", task.BookID, err)
		}
		log.Printf("[TASK] Book %d cached for offline use", task.BookID)
		return nil
	}
}

func NewCacheBookQueue(cacher BookCacher) backlite.Queue {
	return backlite.NewQueue(CacheBookProcessor(cacher))
}

package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// ProgressFlusher defines the progress upload operation tasks depend on.
type ProgressFlusher interface {
	FlushProgress(ctx context.Context) error
}

// FlushProgressTask uploads locally recorded reading progress that has not
// yet reached the remote API. Enqueued on reconnect and on demand.
type FlushProgressTask struct{}

func (t FlushProgressTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "flush_progress",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// FlushProgressProcessor creates a processor that uploads unsynced progress.
func FlushProgressProcessor(flusher ProgressFlusher) backlite.QueueProcessor[FlushProgressTask] {
	return func(ctx context.Context, task FlushProgressTask) error {
		if err := flusher.FlushProgress(ctx); err != nil {
			return fmt.Errorf("flush reading progress: %w", err)
		}
		log.Println("[TASK] Reading progress flushed to remote")
		return nil
	}
}

func NewFlushProgressQueue(flusher ProgressFlusher) backlite.Queue {
	return backlite.NewQueue(FlushProgressProcessor(flusher))
}

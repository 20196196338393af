package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// AudioSweeper defines the audio cache reclamation operation tasks depend on.
type AudioSweeper interface {
	SweepAudioCache() (int, error)
}

// SweepAudioTask removes cached audio files no longer referenced by any
// offline book.
type SweepAudioTask struct{}

func (t SweepAudioTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "sweep_audio",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SweepAudioProcessor creates a processor that reclaims unreferenced audio files.
func SweepAudioProcessor(sweeper AudioSweeper) backlite.QueueProcessor[SweepAudioTask] {
	return func(ctx context.Context, task SweepAudioTask) error {
		removed, err := sweeper.SweepAudioCache()
		if err != nil {
			return fmt.Errorf("sweep audio cache: %w", err)
		}
		log.Printf("[TASK] Audio cache sweep removed %d unreferenced files", removed)
		return nil
	}
}

func NewSweepAudioQueue(sweeper AudioSweeper) backlite.Queue {
	return backlite.NewQueue(SweepAudioProcessor(sweeper))
}

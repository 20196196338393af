package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper reclaims cached audio no longer referenced by any offline book.
type Sweeper interface {
	SweepAudioCache() (int, error)
}

// AudioSweepScheduler manages periodic audio cache reclamation.
type AudioSweepScheduler struct {
	sweeper  Sweeper
	enabled  bool
	schedule string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewAudioSweepScheduler creates a new scheduler instance.
func NewAudioSweepScheduler(sweeper Sweeper, enabled bool, schedule string) *AudioSweepScheduler {
	return &AudioSweepScheduler{
		sweeper:  sweeper,
		enabled:  enabled,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if sweeping is enabled.
func (s *AudioSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.enabled {
		log.Printf("Audio sweep scheduler: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runSweep()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule audio sweep: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Audio sweep scheduler: started with schedule '%s'", s.schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *AudioSweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Audio sweep scheduler: stopped")
}

// RunNow triggers an immediate sweep.
func (s *AudioSweepScheduler) RunNow() {
	go s.runSweep()
}

// IsRunning returns whether the scheduler is active.
func (s *AudioSweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next sweep will occur.
func (s *AudioSweepScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *AudioSweepScheduler) runSweep() {
	start := time.Now()
	removed, err := s.sweeper.SweepAudioCache()
	if err != nil {
		log.Printf("Audio sweep: failed: %v", err)
		return
	}
	log.Printf("Audio sweep: removed %d unreferenced files in %v", removed, time.Since(start).Round(time.Millisecond))
}

package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Prober is the connectivity check the scheduler drives.
type Prober interface {
	CheckNow(ctx context.Context) bool
	IsConnected() bool
}

// ConnectivityProbeScheduler runs periodic reachability probes so the
// monitor notices connectivity changes even when no request traffic
// exercises the remote API.
type ConnectivityProbeScheduler struct {
	prober   Prober
	schedule string
	timeout  time.Duration

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewConnectivityProbeScheduler creates a new scheduler instance.
func NewConnectivityProbeScheduler(prober Prober, schedule string, timeout time.Duration) *ConnectivityProbeScheduler {
	return &ConnectivityProbeScheduler{
		prober:   prober,
		schedule: schedule,
		timeout:  timeout,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler.
func (s *ConnectivityProbeScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runProbe()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule connectivity probe: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Connectivity probe scheduler: started with schedule '%s'", s.schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *ConnectivityProbeScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Connectivity probe scheduler: stopped")
}

// RunNow triggers an immediate probe.
func (s *ConnectivityProbeScheduler) RunNow() {
	go s.runProbe()
}

// IsRunning returns whether the scheduler is active.
func (s *ConnectivityProbeScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next probe will occur.
func (s *ConnectivityProbeScheduler) NextRunTime() *time.Time {
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

func (s *ConnectivityProbeScheduler) runProbe() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	was := s.prober.IsConnected()
	now := s.prober.CheckNow(ctx)
	if was != now {
		log.Printf("Connectivity probe: state changed, connected=%v", now)
	}
}

package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/LuisPExd/nasa-apps-challenge-1/internal/store"
)

const defaultInterval = 5 * time.Minute

// Target is an upstream checked on every run.
type Target struct {
	Name  string
	// Check performs one request and returns the upstream status.
	Check func(ctx context.Context) (int, error)
	// State reports the breaker state guarding the target. Optional.
	State func() string
}

// Scheduler periodically probes upstream targets and records the outcome.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     *store.MemoryStore
	targets   []Target
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler.
func New(targets []Target, interval time.Duration, probes *store.MemoryStore) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		store:     probes,
		targets:   targets,
		interval:  interval,
		timeout:   30 * time.Second,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.targets) == 0 {
		log.Println("scheduler: no targets configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.period()).Do(func() {
		log.Println("scheduler: running upstream probe job")
		s.RunOnce(context.Background())
		log.Println("scheduler: completed upstream probe job")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// period is the configured interval, or five minutes when unset.
func (s *Scheduler) period() time.Duration {
	if s.interval <= 0 {
		return defaultInterval
	}
	return s.interval
}

// RunOnce probes every target concurrently and stores the results.
func (s *Scheduler) RunOnce(ctx context.Context) {
	var wg sync.WaitGroup
	for _, target := range s.targets {
		target := target
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			p := probe(ctx, target)
			if !p.OK {
				log.Printf("scheduler: probe failed for %s: status=%d err=%s", target.Name, p.Status, p.Error)
			}
			s.store.Save(p)
		}()
	}
	wg.Wait()
}

func probe(ctx context.Context, target Target) store.Probe {
	started := time.Now()
	status, err := target.Check(ctx)
	p := store.Probe{
		ID:        uuid.NewString(),
		Target:    target.Name,
		Timestamp: started.UTC(),
		OK:        err == nil && status >= 200 && status < 300,
		Status:    status,
		LatencyMS: time.Since(started).Milliseconds(),
	}
	if err != nil {
		p.Error = err.Error()
	}
	if target.State != nil {
		p.Breaker = target.State()
	}
	return p
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

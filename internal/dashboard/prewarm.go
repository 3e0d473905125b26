package dashboard

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Prewarmer refreshes the cache on the coordinator's refresh interval so page
// loads rarely pay for a fetch cycle.
type Prewarmer struct {
	scheduler *gocron.Scheduler
	coord     *Coordinator
}

// NewPrewarmer creates a Prewarmer for coord. Call Start to begin.
func NewPrewarmer(coord *Coordinator) *Prewarmer {
	return &Prewarmer{
		scheduler: gocron.NewScheduler(time.UTC),
		coord:     coord,
	}
}

// Start schedules the refresh job, running it once immediately.
func (p *Prewarmer) Start() error {
	interval := p.coord.RefreshInterval()
	if interval <= 0 {
		return nil
	}

	_, err := p.scheduler.Every(interval).SingletonMode().Do(func() {
		vm := p.coord.Refresh(context.Background())
		if vm.Degraded() {
			log.Printf("prewarm: refreshed with failures: %v", vm.ErrorSources())
		}
	})
	if err != nil {
		return err
	}

	p.scheduler.StartAsync()
	log.Printf("prewarm: refreshing every %s", interval)
	return nil
}

// Stop halts future refreshes.
func (p *Prewarmer) Stop() {
	if p.scheduler != nil {
		p.scheduler.Stop()
	}
}

package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sndlabs/snd/internal/model"
)

// Runner drives the daemon loop: an immediate cycle on start, then one
// per poll interval. A cycle still in flight when the ticker fires is
// reported as a skip, never queued. Stop takes effect at the next cycle
// boundary; an in-flight cycle is not interrupted mid-message.
type Runner struct {
	syncer *Syncer
	log    *logrus.Entry

	// OnCycle, when set, receives the stats of every completed cycle.
	OnCycle func(stats []Stats, err error)

	mu      stdsync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewRunner creates a daemon runner over the syncer.
func NewRunner(syncer *Syncer, log *logrus.Entry) *Runner {
	return &Runner{syncer: syncer, log: log}
}

// Start launches the polling loop in a goroutine. Calling Start on a
// running runner is a no-op.
func (r *Runner) Start(ctx context.Context, cfg *model.Config, accountID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})

	go r.loop(ctx, cfg, accountID)
}

// Stop requests the loop to halt and waits for the current cycle, if
// any, to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	done := r.doneCh
	r.mu.Unlock()

	<-done
}

func (r *Runner) loop(ctx context.Context, cfg *model.Config, accountID string) {
	defer close(r.doneCh)

	interval := time.Duration(cfg.Poll.IntervalSec) * time.Second
	if interval <= 0 {
		interval = 300 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.runCycle(ctx, cfg, accountID)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runCycle(ctx, cfg, accountID)
		}
	}
}

func (r *Runner) runCycle(ctx context.Context, cfg *model.Config, accountID string) {
	stats, err := r.syncer.RunOnce(ctx, cfg, accountID)
	if errors.Is(err, ErrCycleInFlight) {
		r.log.Warn("previous cycle still running, skipping this tick")
		return
	}
	if err != nil {
		r.log.Errorf("cycle finished with errors: %v", err)
	}

	if r.OnCycle != nil {
		r.OnCycle(stats, err)
	}
}
